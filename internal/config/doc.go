// Package config provides configuration parsing for the counter server and
// CLI.
//
// The configuration is stored in counter.json at the project root, or in
// the file named by the COUNTER_CONFIG environment variable. Missing
// fields take their defaults; command-line flags override file values.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 3000
//	  },
//	  "persist": {
//	    "backend": "sqlite",
//	    "key": "counter-storage",
//	    "dsn": "counter.db"
//	  },
//	  "devtools": {
//	    "enabled": true,
//	    "name": "counter",
//	    "log": false,
//	    "history": 100
//	  },
//	  "metrics": { "enabled": true, "namespace": "counter" },
//	  "tracing": { "enabled": false },
//	  "log": { "level": "info", "format": "text" }
//	}
//
// Persistence backends are memory, file (persist.dir), sqlite
// (persist.dsn) and s3 (persist.bucket, optional prefix, region and
// endpoint; credentials come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
// and AWS_SESSION_TOKEN) and redis (persist.addr, optional db and prefix;
// REDIS_USERNAME and REDIS_PASSWORD supply credentials).
//
// # Usage
//
//	cfg, err := config.Resolve("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	storage, err := cfg.OpenStorage()
package config
