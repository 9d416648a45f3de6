package config

import (
	"fmt"
	"strings"
	"time"
)

// DemoConfig configures the serve-demo backend.
type DemoConfig interface {
	GetPort() string
	GetDemoAccessTokenExpiry() time.Duration
	GetDemoRefreshTokenExpiry() time.Duration
	GetDemoSecret() string
}

type Demo struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	AccessTokenExpiry  time.Duration `env:"DEMO_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"DEMO_REFRESH_TOKEN_EXPIRY" envDefault:"168h"` // 7 days
	Secret             string        `env:"DEMO_JWT_SECRET"`
}

var _ DemoConfig = Demo{}

func (d Demo) GetPort() string {
	port := d.Port
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (d Demo) GetDemoAccessTokenExpiry() time.Duration {
	return d.AccessTokenExpiry
}

func (d Demo) GetDemoRefreshTokenExpiry() time.Duration {
	return d.RefreshTokenExpiry
}

// GetDemoSecret is the HMAC signing secret. Empty means a random secret per
// run, which invalidates stored tokens on restart.
func (d Demo) GetDemoSecret() string {
	return d.Secret
}
