package config

import (
	"flag"
	"os"

	"github.com/simvex/simvex-server/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-u string   S3 access key id
//	-p string   S3 secret access key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-n string   CDN base URL
//	-o string   public bucket URL (fallback when no CDN)
//	-i string   assistant service base URL
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-u", "-p", "-b", "-g", "-e", "-n", "-o", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.S3AccessKeyID, "u", config.S3AccessKeyID, "S3 access key id")
	fs.StringVar(&config.S3SecretAccessKey, "p", config.S3SecretAccessKey, "S3 secret access key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.CDNURL, "n", config.CDNURL, "CDN base URL")
	fs.StringVar(&config.PublicBucketURL, "o", config.PublicBucketURL, "public bucket URL")
	fs.StringVar(&config.AssistantBaseURL, "i", config.AssistantBaseURL, "assistant base URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
