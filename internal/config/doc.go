// Package config provides configuration parsing for the vtemplate CLI.
//
// The configuration is stored in vtemplate.json. Every field is optional.
//
// # Configuration File Structure
//
//	{
//	  "templates": ["toolbar.yaml"],
//	  "preview": {
//	    "host": "localhost",
//	    "port": 7070,
//	    "websocketPath": "/ws",
//	    "watch": true
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "vtemplate",
//	    "path": "/metrics"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Discover(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Preview:", cfg.PreviewURL())
package config
