package relay

import (
	"io"

	"github.com/diwise/parse-adapter/pkg/parse/schema"
	yaml "gopkg.in/yaml.v2"
)

type Backend struct {
	Endpoint      string `yaml:"endpoint"`
	ApplicationID string `yaml:"applicationId"`
	RESTAPIKey    string `yaml:"restApiKey"`
	Debug         bool   `yaml:"debug"`
}

type Tenant struct {
	ID      string          `yaml:"id"`
	Name    string          `yaml:"name"`
	Backend Backend         `yaml:"backend"`
	Models  []*schema.Model `yaml:"models"`
}

type Config struct {
	Tenants []Tenant `yaml:"tenants"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}
