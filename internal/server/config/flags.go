package config

import (
	"flag"
	"os"
	"time"

	"github.com/verdantlabs/accountd/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-i string   JWT issuer
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-v int      verification token validity, hours
//	-q string   AMQP broker URL
//	-n string   notification queue name
//	-f string   mail sender address
//	-m string   SMTP relay address
//	-u string   verification link base URL
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-t", "-r", "-v", "-q", "-n", "-f", "-m", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "JWT issuer")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	verificationTokenValidityDuration := fs.Int("v", int(config.VerificationTokenValidityDuration.Hours()), "verification_token_validity_duration (in hours)")

	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP broker URL")
	fs.StringVar(&config.MailQueue, "n", config.MailQueue, "notification queue name")
	fs.StringVar(&config.MailFrom, "f", config.MailFrom, "mail sender address")
	fs.StringVar(&config.SMTPAddr, "m", config.SMTPAddr, "SMTP relay address")
	fs.StringVar(&config.VerificationBaseURL, "u", config.VerificationBaseURL, "verification link base URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.VerificationTokenValidityDuration = time.Duration(*verificationTokenValidityDuration) * time.Hour
}
