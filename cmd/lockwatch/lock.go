package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lockwatch-dev/lockwatch/internal/config"
	lwerrors "github.com/lockwatch-dev/lockwatch/internal/errors"
)

func lockCmd() *cobra.Command {
	var (
		api     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock the PC through a running monitor",
		Long: `Send the lock command through the control API of a running
"lockwatch monitor".

Examples:
  lockwatch lock
  lockwatch lock --api 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := issueRemote(ctx, http.DefaultClient, api, "lock"); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Lock command sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&api, "api", config.DefaultAPIAddress, "Control API address of the running monitor")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")

	return cmd
}

// issueRemote posts a command to a monitor's control API and maps the
// response to a coded error.
func issueRemote(ctx context.Context, client *http.Client, api, name string) error {
	base := api
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	url := strings.TrimRight(base, "/") + "/commands/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return lwerrors.New("E301").Wrap(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return lwerrors.New("E301").
			WithDetail(fmt.Sprintf("POST %s failed", url)).
			Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var remote struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &remote) == nil && remote.Code != "" {
		err := lwerrors.New(remote.Code)
		if remote.Detail != "" {
			err = err.WithDetail(remote.Detail)
		}
		return err
	}
	return lwerrors.New("E301").
		WithDetail(fmt.Sprintf("Unexpected response %s from %s", resp.Status, url))
}
