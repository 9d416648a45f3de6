package config

import (
	"fmt"
	"net/url"
	"time"
)

type ClientConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
}

type Client struct {
	APIURL         string        `env:"API_URL" envDefault:"http://localhost:8080/api"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

var _ ClientConfig = Client{}

func (c Client) GetAPIURL() string {
	return c.APIURL
}

func (c Client) GetRequestTimeout() time.Duration {
	return c.RequestTimeout
}

func (c Client) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL %q must be an absolute URL", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}
