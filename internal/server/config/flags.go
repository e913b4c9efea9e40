package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/shlink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-l string   public base URL
//	-s string   file token HMAC secret
//	-n int      passcode attempts before lockout
//	-t int      file token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket (setting it enables S3 storage)
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-o string   comma separated CORS origins
//
// Only these flags are parsed; os.Args is filtered first so that flags
// owned by other layers (-c) are not rejected.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-l", "-s", "-n", "-t", "-u", "-p", "-b", "-g", "-e", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BaseURL, "l", config.BaseURL, "public base URL")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.PasscodeAttempts, "n", config.PasscodeAttempts, "passcode attempts before lockout")
	fileTokenTTL := fs.Int("t", int(config.FileTokenTTL.Minutes()), "file token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	bucket := fs.String("b", "", "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	origins := fs.String("o", "", "CORS allowed origins, comma separated")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.FileTokenTTL = time.Duration(*fileTokenTTL) * time.Minute
	if *bucket != "" {
		config.S3Bucket = *bucket
		config.S3Enabled = true
	}
	if *origins != "" {
		config.CORSAllowedOrigins = strings.Split(*origins, ",")
	}
}
