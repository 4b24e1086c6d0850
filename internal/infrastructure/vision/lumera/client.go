// Package lumera implements the vision-analysis vendor workflow: init an
// upload per image, push the binary, create one analysis task over the
// uploaded assets, then poll the task until terminal.
package lumera

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/glowlab/dermascan/internal/core/domain"
	"github.com/glowlab/dermascan/internal/infrastructure/asynctask"
	"github.com/glowlab/dermascan/internal/infrastructure/resilience"
)

type Client struct {
	baseURL        string
	apiKey         string
	channels       []string
	perCallTimeout time.Duration
	httpClient     *http.Client
	executor       *resilience.Executor
	poller         *asynctask.Poller
}

func New(
	baseURL, apiKey string,
	channels []string,
	perCallTimeout time.Duration,
	executor *resilience.Executor,
	poller *asynctask.Poller,
) *Client {
	if perCallTimeout <= 0 {
		perCallTimeout = 5 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		channels:       channels,
		perCallTimeout: perCallTimeout,
		httpClient:     &http.Client{},
		executor:       executor,
		poller:         poller,
	}
}

type initUploadRequest struct {
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Name        string `json:"name"`
}

type initUploadResponse struct {
	AssetID   string `json:"asset_id"`
	UploadURL string `json:"upload_url"`
}

type createTaskRequest struct {
	AssetIDs []string `json:"asset_ids"`
	Channels []string `json:"channels"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
}

type channelPayload struct {
	Raw        float64 `json:"raw"`
	OverlayURL string  `json:"overlay_url,omitempty"`
}

type taskStatusResponse struct {
	Status   string                    `json:"status"`
	Error    string                    `json:"error,omitempty"`
	Channels map[string]channelPayload `json:"channels,omitempty"`
}

// Submit uploads every image and creates the analysis task. Each vendor call
// is attempted exactly once: any non-success response or malformed body is a
// terminal submission error. Only the poll loop ever re-issues calls.
func (c *Client) Submit(ctx context.Context, req *domain.ScanRequest) (*domain.TaskHandle, error) {
	assetIDs := make([]string, 0, len(req.Images))
	for i, img := range req.Images {
		upload, err := c.initUpload(ctx, img)
		if err != nil {
			return nil, domain.WrapError(domain.ErrSubmission, fmt.Sprintf("init upload %d", i), err)
		}
		if err := c.uploadBinary(ctx, upload.UploadURL, img); err != nil {
			return nil, domain.WrapError(domain.ErrSubmission, fmt.Sprintf("upload binary %d", i), err)
		}
		assetIDs = append(assetIDs, upload.AssetID)
	}

	taskID, err := c.createTask(ctx, assetIDs)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSubmission, "create task", err)
	}
	return &domain.TaskHandle{
		TaskID: taskID,
		Stage:  domain.StageSubmitVision,
		Status: domain.TaskPending,
	}, nil
}

// Await polls the task under ceiling. Transient transport failures and
// per-call timeouts are consumed against the ceiling; a vendor-reported error
// or ceiling exhaustion terminates immediately.
func (c *Client) Await(ctx context.Context, handle *domain.TaskHandle, ceiling time.Duration) (domain.ChannelResults, error) {
	handle.Stage = domain.StagePollVision

	var results domain.ChannelResults
	attempts, err := c.poller.Poll(ctx, ceiling, func(callCtx context.Context) (asynctask.CheckOutcome, error) {
		status, err := c.getTaskStatus(callCtx, handle.TaskID)
		if err != nil {
			return pendingOnTransient(err)
		}
		switch status.Status {
		case "success":
			results = convertChannels(status.Channels)
			return asynctask.OutcomeDone, nil
		case "error":
			return asynctask.OutcomePending, domain.WrapError(domain.ErrVendorTerminal, "task status",
				errors.New(vendorErrorMessage(status.Error)))
		default:
			return asynctask.OutcomePending, nil
		}
	})
	handle.Attempts = attempts

	if err != nil {
		handle.Status = domain.TaskError
		if domain.IsKind(err, domain.ErrBudgetExceeded) {
			handle.Status = domain.TaskTimeout
		}
		return nil, err
	}
	handle.Status = domain.TaskSuccess
	return results, nil
}

func (c *Client) initUpload(ctx context.Context, img domain.ImageInput) (initUploadResponse, error) {
	payload := initUploadRequest{
		ContentType: img.ContentType,
		Size:        len(img.Data),
		Name:        img.Name,
	}
	var resp initUploadResponse
	err := c.executor.ExecuteOnce(ctx, "lumera.init_upload", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.perCallTimeout)
		defer cancel()
		return c.postJSON(callCtx, c.baseURL+"/v1/uploads", payload, &resp, "init upload")
	}, classifyVendorError)
	if err != nil {
		return initUploadResponse{}, err
	}
	if resp.AssetID == "" || resp.UploadURL == "" {
		return initUploadResponse{}, errors.New("malformed init upload response")
	}
	return resp, nil
}

func (c *Client) uploadBinary(ctx context.Context, uploadURL string, img domain.ImageInput) error {
	return c.executor.ExecuteOnce(ctx, "lumera.upload_binary", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.perCallTimeout)
		defer cancel()
		return c.putBinary(callCtx, uploadURL, img.Data, img.ContentType, "upload binary")
	}, classifyVendorError)
}

func (c *Client) createTask(ctx context.Context, assetIDs []string) (string, error) {
	payload := createTaskRequest{AssetIDs: assetIDs, Channels: c.channels}
	var resp createTaskResponse
	err := c.executor.ExecuteOnce(ctx, "lumera.create_task", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.perCallTimeout)
		defer cancel()
		return c.postJSON(callCtx, c.baseURL+"/v1/tasks", payload, &resp, "create task")
	}, classifyVendorError)
	if err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", errors.New("malformed create task response")
	}
	return resp.TaskID, nil
}

// getTaskStatus is a single raw status query. The poll loop, not the
// executor, owns its retry semantics.
func (c *Client) getTaskStatus(ctx context.Context, taskID string) (taskStatusResponse, error) {
	var resp taskStatusResponse
	if err := c.getJSON(ctx, c.baseURL+"/v1/tasks/"+taskID, &resp, "task status"); err != nil {
		return taskStatusResponse{}, err
	}
	return resp, nil
}

func convertChannels(payload map[string]channelPayload) domain.ChannelResults {
	results := make(domain.ChannelResults, len(payload))
	for key, ch := range payload {
		results[key] = domain.ChannelResult{Raw: ch.Raw, OverlayURL: ch.OverlayURL}
	}
	return results
}

func vendorErrorMessage(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return "vendor reported terminal error"
	}
	return msg
}
