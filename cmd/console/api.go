package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/internal/handlers"
	"github.com/jwebster45206/tavern-engine/internal/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

// apiClient talks to the tavern API
type apiClient struct {
	http    *http.Client
	baseURL string
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a request and decodes a JSON response into out when status matches want
func (c *apiClient) do(method, path string, body interface{}, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) listBartenders() ([]handlers.BartenderSummary, error) {
	var out []handlers.BartenderSummary
	err := c.do(http.MethodGet, "/v1/bartenders", nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) listPatrons() ([]string, error) {
	var out []string
	err := c.do(http.MethodGet, "/v1/patrons", nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) getPatron(id string) (*actor.PatronSpec, error) {
	var out actor.PatronSpec
	if err := c.do(http.MethodGet, "/v1/patrons/"+id, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) startInteraction(req tavern.StartRequest) (*handlers.InteractionResponse, error) {
	var out handlers.InteractionResponse
	if err := c.do(http.MethodPost, "/v1/interactions", req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) advance(id uuid.UUID) (*handlers.InteractionResponse, error) {
	var out handlers.InteractionResponse
	if err := c.do(http.MethodPost, "/v1/interactions/"+id.String()+"/advance", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) selectOption(id uuid.UUID, option dialogue.OptionID) (*handlers.InteractionResponse, error) {
	var out handlers.InteractionResponse
	body := handlers.SelectRequest{Option: option}
	if err := c.do(http.MethodPost, "/v1/interactions/"+id.String()+"/select", body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) endInteraction(id uuid.UUID) error {
	return c.do(http.MethodDelete, "/v1/interactions/"+id.String(), nil, http.StatusNoContent, nil)
}
