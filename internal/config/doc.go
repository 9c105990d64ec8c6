// Package config provides configuration parsing for the resize tool.
//
// The configuration is stored in resize.json in the working directory or
// one of its parents. Every field is optional; command-line flags override
// what the file sets.
//
// # Configuration File Structure
//
//	{
//	  "server": "http://localhost:8080",
//	  "instance": "i-0abc123",
//	  "resizePath": "/resize/{id}",
//	  "regionPath": "/region",
//	  "types": ["t3.micro", "t3.small", "m5.large"],
//	  "channel": {
//	    "handshakeTimeout": "10s",
//	    "writeTimeout": "10s",
//	    "firstFrameTimeout": "30s",
//	    "maxMessageSize": 65536,
//	    "closePolicy": "ambiguous"
//	  },
//	  "metrics": {
//	    "address": ":9090",
//	    "namespace": "resize"
//	  },
//	  "transcripts": {
//	    "dir": ".resize/transcripts",
//	    "s3": {
//	      "bucket": "ops-transcripts",
//	      "prefix": "resize",
//	      "region": "us-east-1"
//	    }
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	chCfg, err := cfg.ChannelConfig()
package config
