// Package config provides configuration management for the AWS Cost Explorer API.
//
// Configuration sources (in order of precedence):
//  1. Command line options passed to Load (highest priority)
//  2. Environment variables
//  3. Optional YAML configuration file
//  4. Default values (lowest priority)
//
// Supported environment variables:
//   - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY: required billing credentials
//   - AWS_SESSION_TOKEN: optional session token for temporary credentials
//   - COST_API_HOST: listen host (default 0.0.0.0)
//   - COST_API_PORT: listen port, 1-65535 (default 8000)
//   - COST_API_LOG_LEVEL: debug, info, warn or error
//   - COST_API_TIMEOUT: billing API timeout in seconds (default 30, max 300)
//   - COST_API_VERIFY_CREDENTIALS: call STS at startup to check credentials
//
// Credentials are never read from the YAML file. The billing region is not
// configurable: Cost Explorer is only served from us-east-1.
//
// Example configuration file (config.yaml):
//
//	host: "127.0.0.1"
//	http_port: 8000
//	log_level: "info"
//	api_timeout: 30
//	verify_credentials: false
package config
