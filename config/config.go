// Copyright The Notary Project Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads verifier settings from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/iapkit/iap-core-go/iap"
	"github.com/iapkit/iap-core-go/log"
	"github.com/iapkit/iap-core-go/receipt"
	"github.com/iapkit/iap-core-go/transaction"
	"github.com/iapkit/iap-core-go/truststore"
	"github.com/sirupsen/logrus"
)

// Config holds the environment driven settings of the verifiers.
type Config struct {
	// RootCertDir is an optional directory of <identifier>.cer root
	// certificates consulted before the embedded ones.
	RootCertDir string `env:"IAP_ROOT_CERT_DIR"`

	// RootCacheTTL is the maximum age of a memoized root certificate.
	RootCacheTTL time.Duration `env:"IAP_ROOT_CACHE_TTL,default=24h"`

	// VerifyCertTime checks receipt certificates at the creation date.
	VerifyCertTime bool `env:"IAP_VERIFY_CERT_TIME,default=true"`

	// ReturnRemaining keeps undocumented receipt attributes.
	ReturnRemaining bool `env:"IAP_RETURN_REMAINING,default=false"`

	// SkipVerification disables signature verification. Payloads are
	// returned unauthenticated.
	SkipVerification bool `env:"IAP_SKIP_VERIFICATION,default=false"`

	// LogLevel is a logrus level name.
	LogLevel string `env:"IAP_LOG_LEVEL,default=info"`

	provider iap.RootCertificateProvider
	logger   log.Logger
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom reads the configuration from the given environment.
func LoadFrom(es env.EnvSet) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) init() error {
	if err := c.validate(); err != nil {
		return err
	}
	var providers []iap.RootCertificateProvider
	if c.RootCertDir != "" {
		providers = append(providers, truststore.Dir(c.RootCertDir))
	}
	providers = append(providers, truststore.Embedded())
	c.provider = truststore.NewCached(truststore.Chain(providers...), c.RootCacheTTL)
	c.logger = log.New(c.LogLevel)
	return nil
}

// validate checks the values env tags cannot express.
func (c *Config) validate() error {
	if c.RootCacheTTL == 0 {
		return fmt.Errorf("IAP_ROOT_CACHE_TTL must not be zero, use a negative value to never expire")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid IAP_LOG_LEVEL: %s", c.LogLevel)
	}
	return nil
}

// RootProvider returns the memoized provider chain built from the
// configuration.
func (c *Config) RootProvider() iap.RootCertificateProvider {
	return c.provider
}

// Logger returns the logger built from the configuration.
func (c *Config) Logger() log.Logger {
	return c.logger
}

func (c *Config) trust() iap.Trust {
	if c.SkipVerification {
		return iap.TrustSkip()
	}
	return iap.TrustDefault()
}

// ReceiptOptions returns the receipt verification options.
func (c *Config) ReceiptOptions() *receipt.VerifyOptions {
	verifyCertTime := c.VerifyCertTime
	return &receipt.VerifyOptions{
		ReturnRemaining: c.ReturnRemaining,
		Trust:           c.trust(),
		VerifyCertTime:  &verifyCertTime,
		RootProvider:    c.provider,
		Logger:          c.logger,
	}
}

// TransactionOptions returns the transaction verification options.
func (c *Config) TransactionOptions() *transaction.Options {
	return &transaction.Options{
		Trust:        c.trust(),
		RootProvider: c.provider,
		Logger:       c.logger,
	}
}
