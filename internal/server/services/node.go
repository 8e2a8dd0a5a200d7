package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/simvex/simvex-server/internal/common"
	"github.com/simvex/simvex-server/internal/logging"
	"github.com/simvex/simvex-server/internal/server/repositories/projects"
)

// AssistantClient is the outbound collaborator answering node questions.
type AssistantClient interface {
	Ask(ctx context.Context, projectID, nodeName, content string) ([]byte, error)
}

// NodeService resolves per-node lookups against a project's uploaded
// metadata document.
//
// The document is fetched fresh over the network on every call. That makes
// every lookup a full round trip, and it makes every lookup see the latest
// uploaded document; a caching layer is a known candidate here, trading
// staleness for latency.
type NodeService struct {
	repo      projects.Repository
	http      *http.Client
	assistant AssistantClient
	logger    logging.Logger
}

func NewNodeService(repo projects.Repository, httpClient *http.Client, assistant AssistantClient, logger logging.Logger) *NodeService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &NodeService{repo: repo, http: httpClient, assistant: assistant, logger: logger}
}

// GetNode returns the sub-document stored under nodeName at the top level of
// the project's metadata JSON. The payload is passed through opaquely, no
// schema is enforced.
func (s *NodeService) GetNode(ctx context.Context, projectID, nodeName string) (json.RawMessage, error) {

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if project.JSONFileURL == "" {
		return nil, fmt.Errorf("%w: project %s has no metadata document", common.ErrorNotFound, projectID)
	}

	doc, err := s.fetchDocument(ctx, project.JSONFileURL)
	if err != nil {
		return nil, err
	}

	payload, ok := doc[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: node %q", common.ErrorNotFound, nodeName)
	}

	return payload, nil
}

// AskAssistant forwards a node question to the assistant collaborator and
// passes its response through verbatim.
func (s *NodeService) AskAssistant(ctx context.Context, projectID, nodeName, content string) ([]byte, error) {
	if _, err := s.repo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.assistant.Ask(ctx, projectID, nodeName, content)
}

func (s *NodeService) fetchDocument(ctx context.Context, url string) (map[string]json.RawMessage, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorRetrievalFailed, err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Error(ctx, "metadata fetch failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrorRetrievalFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: metadata document missing", common.ErrorNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: metadata fetch returned status %d", common.ErrorRetrievalFailed, resp.StatusCode)
	}

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid metadata document: %w", common.ErrorRetrievalFailed, err)
	}

	return doc, nil
}
