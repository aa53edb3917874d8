package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/verdantlabs/accountd/internal/flagx"
	"github.com/verdantlabs/accountd/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP                  string         `json:"endpoint_addr_http"`
	DatabaseDSN                       string         `json:"database_dsn"`
	SecretKey                         string         `json:"secret_key"`
	Issuer                            string         `json:"issuer"`
	AccessTokenValidityDuration       timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration timex.Duration `json:"verification_token_validity_duration"`
	BcryptCost                        int            `json:"bcrypt_cost"`
	AMQPURL                           string         `json:"amqp_url"`
	MailQueue                         string         `json:"mail_queue"`
	MailFrom                          string         `json:"mail_from"`
	SMTPAddr                          string         `json:"smtp_addr"`
	VerificationBaseURL               string         `json:"verification_base_url"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.Issuer = c.Issuer
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.VerificationTokenValidityDuration = time.Duration(c.VerificationTokenValidityDuration.Duration)
	config.BcryptCost = c.BcryptCost
	config.AMQPURL = c.AMQPURL
	config.MailQueue = c.MailQueue
	config.MailFrom = c.MailFrom
	config.SMTPAddr = c.SMTPAddr
	config.VerificationBaseURL = c.VerificationBaseURL
}
