package endpoint

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/marcelsud/webhook-relay/config"
	"gopkg.in/yaml.v3"
)

// DefaultID names the endpoint built from N8N_WEBHOOK_URL
const DefaultID = "default"

// File represents the structure of endpoints.yaml
type File struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig represents a single endpoint in the YAML file
type EndpointConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`    // ${VAR} references are expanded
	Secret string `yaml:"secret"` // ${VAR} references are expanded
}

/* Registry holds the operator-configured endpoints
 * Loaded from endpoints.yaml at start, read concurrently afterwards
 */
type Registry struct {
	mu        sync.RWMutex
	validator *Validator
	endpoints map[string]Endpoint
}

// NewRegistry creates an empty registry that validates with v
func NewRegistry(v *Validator) *Registry {
	return &Registry{
		validator: v,
		endpoints: make(map[string]Endpoint),
	}
}

// NewRegistryFromConfig loads ENDPOINTS_FILE and adds N8N_WEBHOOK_URL as the default endpoint.
// An endpoints file entry with id "default" wins over the environment.
func NewRegistryFromConfig(cfg *config.Config, v *Validator) (*Registry, error) {
	r := NewRegistry(v)
	if cfg.EndpointsFile != "" {
		if err := r.Load(cfg.EndpointsFile); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultWebhookURL != "" && !r.Exists(DefaultID) {
		err := r.Add(Endpoint{
			ID:     DefaultID,
			URL:    cfg.DefaultWebhookURL,
			Secret: cfg.DefaultWebhookSecret,
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load reads and parses an endpoints file
func (r *Registry) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading endpoints file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing endpoints YAML: %w", err)
	}

	for _, ec := range f.Endpoints {
		ep := Endpoint{
			ID:     ec.ID,
			Name:   ec.Name,
			URL:    os.ExpandEnv(ec.URL),
			Secret: os.ExpandEnv(ec.Secret),
		}
		if err := r.Add(ep); err != nil {
			return fmt.Errorf("validating endpoint: %w", err)
		}
	}

	return nil
}

// Add validates ep as operator infrastructure and stores it under its canonical URL
func (r *Registry) Add(ep Endpoint) error {
	if ep.ID == "" {
		return fmt.Errorf("id cannot be empty")
	}
	canonical, err := r.validator.ValidateOperator(ep.URL)
	if err != nil {
		return fmt.Errorf("invalid url for endpoint %s: %w", ep.ID, err)
	}
	ep.URL = canonical
	if ep.Name == "" {
		ep.Name = ep.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.endpoints[ep.ID]; exists {
		return fmt.Errorf("duplicate endpoint id: %s", ep.ID)
	}
	r.endpoints[ep.ID] = ep
	return nil
}

// Get retrieves an endpoint by its ID
func (r *Registry) Get(id string) (Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, exists := r.endpoints[id]
	if !exists {
		return Endpoint{}, fmt.Errorf("endpoint not found: %s", id)
	}
	return ep, nil
}

// List returns all endpoints ordered by ID
func (r *Registry) List() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists checks if an endpoint ID exists
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.endpoints[id]
	return exists
}
