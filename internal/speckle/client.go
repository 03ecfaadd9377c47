package speckle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds Speckle client configuration.
type Config struct {
	// ServerURL is the Speckle server base URL, e.g. https://app.speckle.systems.
	ServerURL string
	// Token is the personal access token sent as a bearer header.
	Token string
	// FetchTimeout bounds a single object fetch attempt.
	FetchTimeout time.Duration
	// MaxRetries bounds retries of transient object fetch failures.
	// Negative values are treated as zero.
	MaxRetries int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient HTTPClient
	// Logger receives request-level diagnostics; nil means no logging.
	Logger *zap.Logger
}

// DefaultConfig returns a configuration pointing at the public Speckle
// server, without a token.
func DefaultConfig() Config {
	return Config{
		ServerURL:    "https://app.speckle.systems",
		FetchTimeout: 30 * time.Second,
		MaxRetries:   3,
	}
}

// Client talks to one Speckle server on behalf of one token.
type Client struct {
	baseURL      string
	token        string
	http         HTTPClient
	fetchTimeout time.Duration
	maxRetries   int
	logger       *zap.Logger
}

// New creates a client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("speckle server URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.ServerURL, "/"),
		token:        cfg.Token,
		http:         httpClient,
		fetchTimeout: fetchTimeout,
		maxRetries:   maxRetries,
		logger:       logger,
	}, nil
}

// graphql wire shapes.

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// query executes a GraphQL query and decodes the data envelope into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encoding graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &graph.Error{Kind: graph.KindTransient, Message: "speckle server unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &graph.Error{
			Kind:    graph.KindTransient,
			Message: fmt.Sprintf("speckle server returned %s", resp.Status),
		}
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &graph.Error{Kind: graph.KindTransient, Message: "decoding graphql response", Err: err}
	}
	if len(envelope.Errors) > 0 {
		return classifyGraphQLError(envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &graph.Error{Kind: graph.KindTransient, Message: "decoding graphql data", Err: err}
	}
	return nil
}

// classifyGraphQLError maps a GraphQL error message onto the failure
// taxonomy. Speckle reports unknown ids as "not found" errors.
func classifyGraphQLError(message string) error {
	if strings.Contains(strings.ToLower(message), "not found") {
		return &graph.Error{Kind: graph.KindNotFound, Message: message}
	}
	return &graph.Error{Kind: graph.KindTransient, Message: message}
}

const projectFields = `
	id
	name
	description
	visibility
	createdAt
	updatedAt`

type projectNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	SourceApps  []string  `json:"sourceApps"`
	Models      *struct {
		TotalCount int            `json:"totalCount"`
		Items      []ModelSummary `json:"items"`
	} `json:"models"`
	Team []struct {
		Role string `json:"role"`
	} `json:"team"`
}

func (n projectNode) toProject() Project {
	p := Project{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
		Visibility:  strings.ToLower(n.Visibility),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		SourceApps:  n.SourceApps,
		TeamCount:   len(n.Team),
	}
	if n.Models != nil {
		p.Models = n.Models.Items
		p.ModelCount = n.Models.TotalCount
	}
	return p
}

// ListProjects returns up to limit projects accessible with the token.
func (c *Client) ListProjects(ctx context.Context, limit int) ([]Project, error) {
	return c.projects(ctx, "", limit)
}

// SearchProjects returns projects whose name or description matches query.
func (c *Client) SearchProjects(ctx context.Context, query string, limit int) ([]Project, error) {
	return c.projects(ctx, query, limit)
}

func (c *Client) projects(ctx context.Context, search string, limit int) ([]Project, error) {
	gql := `query Projects($limit: Int!, $filter: UserProjectsFilter) {
		activeUser {
			projects(limit: $limit, filter: $filter) {
				totalCount
				items {` + projectFields + `}
			}
		}
	}`

	variables := map[string]any{"limit": limit}
	if search != "" {
		variables["filter"] = map[string]any{"search": search}
	}

	var data struct {
		ActiveUser *struct {
			Projects struct {
				Items []projectNode `json:"items"`
			} `json:"projects"`
		} `json:"activeUser"`
	}
	if err := c.query(ctx, gql, variables, &data); err != nil {
		return nil, err
	}
	if data.ActiveUser == nil {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: "no active user for the configured token"}
	}

	projects := make([]Project, 0, len(data.ActiveUser.Projects.Items))
	for _, node := range data.ActiveUser.Projects.Items {
		projects = append(projects, node.toProject())
	}
	c.logger.Debug("listed projects", zap.Int("count", len(projects)), zap.String("search", search))
	return projects, nil
}

// GetProject returns one project with up to modelsLimit of its models.
func (c *Client) GetProject(ctx context.Context, projectID string, modelsLimit int) (*Project, error) {
	gql := `query Project($id: String!, $modelsLimit: Int!) {
		project(id: $id) {` + projectFields + `
			sourceApps
			models(limit: $modelsLimit) {
				totalCount
				items { id name }
			}
			team { role }
		}
	}`

	var data struct {
		Project *projectNode `json:"project"`
	}
	err := c.query(ctx, gql, map[string]any{"id": projectID, "modelsLimit": modelsLimit}, &data)
	if err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: fmt.Sprintf("project %s not found", projectID)}
	}

	project := data.Project.toProject()
	return &project, nil
}

type versionNode struct {
	ID                string    `json:"id"`
	Message           string    `json:"message"`
	SourceApplication string    `json:"sourceApplication"`
	CreatedAt         time.Time `json:"createdAt"`
	ReferencedObject  string    `json:"referencedObject"`
	AuthorUser        *UserRef  `json:"authorUser"`
}

func (n versionNode) toVersion() Version {
	return Version{
		ID:                n.ID,
		Message:           n.Message,
		SourceApplication: n.SourceApplication,
		CreatedAt:         n.CreatedAt,
		ReferencedObject:  n.ReferencedObject,
		Author:            n.AuthorUser,
	}
}

// ListVersions returns up to limit versions of a model, newest first.
func (c *Client) ListVersions(ctx context.Context, projectID, modelID string, limit int) ([]Version, error) {
	gql := `query ModelVersions($projectId: String!, $modelId: String!, $limit: Int!) {
		project(id: $projectId) {
			model(id: $modelId) {
				versions(limit: $limit) {
					totalCount
					items {
						id
						message
						sourceApplication
						createdAt
						referencedObject
						authorUser { id name }
					}
				}
			}
		}
	}`

	var data struct {
		Project *struct {
			Model *struct {
				Versions struct {
					Items []versionNode `json:"items"`
				} `json:"versions"`
			} `json:"model"`
		} `json:"project"`
	}
	err := c.query(ctx, gql, map[string]any{"projectId": projectID, "modelId": modelID, "limit": limit}, &data)
	if err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: fmt.Sprintf("project %s not found", projectID)}
	}
	if data.Project.Model == nil {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: fmt.Sprintf("model %s not found in project %s", modelID, projectID)}
	}

	versions := make([]Version, 0, len(data.Project.Model.Versions.Items))
	for _, node := range data.Project.Model.Versions.Items {
		versions = append(versions, node.toVersion())
	}
	return versions, nil
}

// GetVersion resolves one version to its root object id and metadata.
func (c *Client) GetVersion(ctx context.Context, projectID, versionID string) (*Version, error) {
	gql := `query Version($projectId: String!, $versionId: String!) {
		project(id: $projectId) {
			version(id: $versionId) {
				id
				message
				sourceApplication
				createdAt
				referencedObject
				authorUser { id name }
			}
		}
	}`

	var data struct {
		Project *struct {
			Version *versionNode `json:"version"`
		} `json:"project"`
	}
	err := c.query(ctx, gql, map[string]any{"projectId": projectID, "versionId": versionID}, &data)
	if err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: fmt.Sprintf("project %s not found", projectID)}
	}
	if data.Project.Version == nil {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: fmt.Sprintf("version %s not found in project %s", versionID, projectID)}
	}

	version := data.Project.Version.toVersion()
	return &version, nil
}
