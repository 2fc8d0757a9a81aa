package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
)

// SubmissionSummary is one row of the submissions listing.
type SubmissionSummary struct {
	ID               string `json:"id"`
	FormDefinitionID string `json:"form_definition_id"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// NewForm fetches a blank form of the given type.
func (c *Client) NewForm(ctx context.Context, formType string) (model.FormData, error) {
	return c.fetchForm(ctx, "/forms/", formType)
}

// FormWithProgress fetches a form of the given type together with the
// caller's in-progress submission, if any.
func (c *Client) FormWithProgress(ctx context.Context, formType string) (model.FormData, error) {
	return c.fetchForm(ctx, "/forms/progress", formType)
}

func (c *Client) fetchForm(ctx context.Context, path, formType string) (model.FormData, error) {
	formType = strings.TrimSpace(formType)
	if formType == "" {
		return model.FormData{}, errors.New("transport: form type is required")
	}
	var data model.FormData
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"type": {formType}},
	}, &data)
	return data, err
}

// SubmissionForEdit fetches a stored submission with its form definition and
// existing data.
func (c *Client) SubmissionForEdit(ctx context.Context, submissionID string) (model.FormData, error) {
	if submissionID == "" {
		return model.FormData{}, errors.New("transport: submission id is required")
	}
	var data model.FormData
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/forms/submissions/" + url.PathEscape(submissionID) + "/edit",
	}, &data)
	return data, err
}

// ListSubmissions returns the caller's submissions.
func (c *Client) ListSubmissions(ctx context.Context) ([]SubmissionSummary, error) {
	var out []SubmissionSummary
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/forms/submissions"}, &out)
	return out, err
}

// submissionPayload covers both response shapes: the submission itself, or
// {"submission": {...}, "status": "draft"} for drafts.
type submissionPayload struct {
	ID           string             `json:"id"`
	SubmissionID string             `json:"submission_id"`
	Status       string             `json:"status"`
	Submission   *submissionPayload `json:"submission"`
}

func (p submissionPayload) result(message string) engine.SubmitResult {
	out := engine.SubmitResult{Status: p.Status, Message: message}
	switch {
	case p.Submission != nil:
		inner := p.Submission.result(message)
		if out.Status == "" {
			out.Status = inner.Status
		}
		out.SubmissionID = inner.SubmissionID
	case p.ID != "":
		out.SubmissionID = p.ID
	default:
		out.SubmissionID = p.SubmissionID
	}
	return out
}

// Submit implements engine.Submitter. Stored submissions are updated in
// place with PUT; new ones are created through the draft or submit route.
func (c *Client) Submit(ctx context.Context, submission engine.Submission) (engine.SubmitResult, error) {
	status := StatusSubmitted
	if submission.IsDraft {
		status = StatusDraft
	}
	meta := map[string]string{MetaStatus: status}

	var method, path string
	if submission.SubmissionID != "" {
		method = http.MethodPut
		path = "/forms/submissions/" + url.PathEscape(submission.SubmissionID)
		meta[MetaPartial] = strconv.FormatBool(submission.IsDraft)
	} else {
		if submission.FormID == "" {
			return engine.SubmitResult{}, errors.New("transport: form id is required")
		}
		method = http.MethodPost
		route := "submit"
		if submission.IsDraft {
			route = "draft"
		}
		path = "/forms/" + url.PathEscape(submission.FormID) + "/" + route
	}
	if submission.IsDraft && submission.CurrentStep > 0 {
		meta[MetaStep] = strconv.Itoa(submission.CurrentStep)
	}

	body, contentType, err := EncodeMultipart(submission.Values, submission.Fields, meta)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	var payload submissionPayload
	message, err := c.do(ctx, request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(body),
		contentType: contentType,
		idempotent:  true,
	}, &payload)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	result := payload.result(message)
	if result.SubmissionID == "" {
		result.SubmissionID = submission.SubmissionID
	}
	if result.Status == "" {
		result.Status = status
	}
	c.logger.WithFields(logrus.Fields{
		"form_id":       submission.FormID,
		"submission_id": result.SubmissionID,
		"status":        result.Status,
	}).Info("submission sent")
	return result, nil
}

// SaveStep implements engine.StepPersister. Saves need a stored submission;
// without one the call is a no-op.
func (c *Client) SaveStep(ctx context.Context, save engine.StepSave) error {
	if save.SubmissionID == "" {
		c.logger.WithField("step", save.StepNumber).Debug("no submission yet, step save skipped")
		return nil
	}

	body, contentType, err := EncodeMultipart(save.Values, save.Fields, map[string]string{
		MetaStatus: StatusCompleted,
		MetaStep:   strconv.Itoa(save.StepNumber),
	})
	if err != nil {
		return err
	}

	_, err = c.do(ctx, request{
		method:      http.MethodPut,
		path:        fmt.Sprintf("/forms/submissions/%s/steps/%d", url.PathEscape(save.SubmissionID), save.StepNumber),
		query:       url.Values{"status": {StatusCompleted}},
		body:        bytes.NewReader(body),
		contentType: contentType,
		idempotent:  true,
	}, nil)
	return err
}

// Complete finalises a stored multi-step submission.
func (c *Client) Complete(ctx context.Context, submissionID string) (engine.SubmitResult, error) {
	if submissionID == "" {
		return engine.SubmitResult{}, errors.New("transport: submission id is required")
	}
	body, contentType, err := EncodeMultipart(nil, nil, map[string]string{MetaStatus: StatusSubmitted})
	if err != nil {
		return engine.SubmitResult{}, err
	}
	var payload submissionPayload
	message, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/forms/submissions/" + url.PathEscape(submissionID) + "/complete",
		body:        bytes.NewReader(body),
		contentType: contentType,
		idempotent:  true,
	}, &payload)
	if err != nil {
		return engine.SubmitResult{}, err
	}
	result := payload.result(message)
	if result.SubmissionID == "" {
		result.SubmissionID = submissionID
	}
	return result, nil
}

// Options implements engine.OptionSource.
func (c *Client) Options(ctx context.Context, sourceName string, params map[string]string) ([]model.Option, error) {
	if sourceName == "" {
		return nil, errors.New("transport: option source is required")
	}
	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}
	var out []model.Option
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/forms/options/" + url.PathEscape(sourceName),
		query:  query,
	}, &out)
	return out, err
}

// DeleteFile implements engine.FileDeleter.
func (c *Client) DeleteFile(ctx context.Context, submissionID, fileID string) error {
	if submissionID == "" || fileID == "" {
		return errors.New("transport: submission id and file id are required")
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/forms/submissions/" + url.PathEscape(submissionID) + "/files/" + url.PathEscape(fileID),
	}, nil)
	return err
}
