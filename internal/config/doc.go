// Package config loads lockwatch's configuration file.
//
// The file is lockwatch.json (comments and trailing commas allowed) or
// lockwatch.yaml. Every field is optional except host, which may also come
// from the --host flag.
//
// # Configuration File Structure
//
//	{
//	  // address of the monitored PC
//	  "host": "192.168.1.20",
//	  "port": 12345,
//	  "retry": {
//	    "mode": "forever",   // or "give-up"
//	    "delay": "3s"
//	  },
//	  "handshake": false,
//	  "api": { "address": "127.0.0.1:8787" },
//	  "metrics": true,
//	  "mirror": {
//	    "bucket": "",
//	    "key": "lockwatch/latest.jpg",
//	    "region": "us-east-1"
//	  },
//	  "log": { "level": "info", "format": "text" }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng := engine.New(cfg.Endpoint(), cfg.Policy())
package config
