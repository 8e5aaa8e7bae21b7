package index

import (
	"fmt"

	"github.com/54b3r/catalograg-go/internal/config"
)

// New builds the Store selected by s.Backend. Connections are lazy for the
// remote backends; use Ping to verify reachability.
func New(s config.IndexSettings) (Store, error) {
	schema := DefaultSchema(s.Dimensions)
	switch s.Backend {
	case config.BackendOpenSearch, "":
		return NewOpenSearchStore(OpenSearchConfig{
			Endpoint: s.OpenSearchEndpoint,
			Username: s.OpenSearchUsername,
			Password: s.OpenSearchPassword,
			Index:    s.Name,
			Schema:   schema,
		})
	case config.BackendQdrant:
		return NewQdrantStore(QdrantConfig{
			Host:       s.QdrantHost,
			Port:       s.QdrantPort,
			Collection: s.Name,
			APIKey:     s.QdrantAPIKey,
			UseTLS:     s.QdrantTLS,
			Schema:     schema,
		})
	case config.BackendMemory:
		return NewMemory(schema), nil
	default:
		return nil, fmt.Errorf("index: unknown backend %q (want %s, %s or %s)",
			s.Backend, config.BackendOpenSearch, config.BackendQdrant, config.BackendMemory)
	}
}
