package cloudtasks

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"rostersync/clients"
	"rostersync/core"
)

var cloudTasksAPIBase = "https://cloudtasks.googleapis.com/v2"

// CloudTasksClient implements clients.TaskQueue using the Cloud Tasks REST API
type CloudTasksClient struct {
	httpClient *http.Client
}

func NewCloudTasksClient(httpClient *http.Client) clients.TaskQueue {
	return &CloudTasksClient{httpClient: httpClient}
}

type oidcToken struct {
	ServiceAccountEmail string `json:"serviceAccountEmail"`
	Audience            string `json:"audience,omitempty"`
}

type httpRequest struct {
	URL        string            `json:"url"`
	HTTPMethod string            `json:"httpMethod"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	OIDCToken  *oidcToken        `json:"oidcToken,omitempty"`
}

type task struct {
	Name        string       `json:"name,omitempty"`
	HTTPRequest *httpRequest `json:"httpRequest,omitempty"`
}

type createTaskRequest struct {
	Task task `json:"task"`
}

// CreateTask enqueues an HTTP POST task and returns the task resource name assigned by the queue
func (c *CloudTasksClient) CreateTask(ctx context.Context, accessToken, queuePath string, httpTask clients.HTTPTask) (string, error) {
	request := createTaskRequest{
		Task: task{
			HTTPRequest: &httpRequest{
				URL:        httpTask.URL,
				HTTPMethod: http.MethodPost,
				Headers:    httpTask.Headers,
				Body:       base64.StdEncoding.EncodeToString(httpTask.Body),
			},
		},
	}
	if httpTask.ServiceAccountEmail != "" {
		request.Task.HTTPRequest.OIDCToken = &oidcToken{
			ServiceAccountEmail: httpTask.ServiceAccountEmail,
			Audience:            httpTask.Audience,
		}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/tasks", cloudTasksAPIBase, queuePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create task request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute create task request: %w: %w", core.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read create task response: %w: %w", core.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create task failed with status %d: %s: %w", resp.StatusCode, string(respBody), core.ErrUpstream)
	}

	var created task
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to decode create task response: %w: %w", core.ErrUpstream, err)
	}
	return created.Name, nil
}
