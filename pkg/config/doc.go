// Package config loads the ppactl YAML configuration.
//
// A configuration file is optional. Values it sets override the built-in
// defaults, which describe the kolibri-server pipeline:
//
//	archives:
//	  owner: learningequality
//	  proposed: kolibri-proposed
//	  release: kolibri
//	distribution: ubuntu
//	whitelist: [kolibri-server]
//	launchpad:
//	  api_root: https://api.launchpad.net/devel/
//	  credentials_file: ~/.config/ppactl/credentials
//	  requests_per_second: 5
//	  burst: 5
//	  timeout: 60s
//	wait:
//	  interval: 60s
//	  timeout: 30m
//	history:
//	  path: ~/.local/state/ppactl/history.db
//	metrics:
//	  textfile: /var/lib/node_exporter/ppactl.prom
//
// Unknown keys are an error. The LP_CREDENTIALS_FILE environment variable
// overrides launchpad.credentials_file.
package config
