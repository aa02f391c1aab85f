package elastic

import (
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/sirdesai22/cf-tracker/internal/logger"
)

func Connect(url string) (*es.Client, error) {
	cfg := es.Config{
		Addresses: []string{url},
	}
	client, err := es.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	log := logger.Named("elastic")
	log.Info().Str("url", url).Msg("Connected to Elasticsearch")
	return client, nil
}
