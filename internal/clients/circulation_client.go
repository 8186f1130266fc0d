package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"libralend/internal/circulation"
)

// CirculationClient drives the lending API. The operator CLI uses it.
type CirculationClient struct {
	base
}

func NewCirculationClient(baseURL string, opts ...Option) *CirculationClient {
	return &CirculationClient{base: newBase("circulation", baseURL, opts)}
}

func (c *CirculationClient) CreateLoan(ctx context.Context, req circulation.CreateLoanRequest) (*circulation.LoanView, error) {
	var view circulation.LoanView
	if err := c.call(ctx, "CreateLoan", http.MethodPost, "/loans", req, http.StatusCreated, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *CirculationClient) ReturnLoan(ctx context.Context, id string) (*circulation.LoanView, error) {
	var view circulation.LoanView
	if err := c.call(ctx, "ReturnLoan", http.MethodPut, "/loans/"+url.PathEscape(id)+"/return", nil, http.StatusOK, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *CirculationClient) GetLoan(ctx context.Context, id string) (*circulation.LoanView, error) {
	var view circulation.LoanView
	if err := c.call(ctx, "GetLoan", http.MethodGet, "/loans/"+url.PathEscape(id), nil, http.StatusOK, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListLoans lists every loan, or only those in status when it is non-empty.
func (c *CirculationClient) ListLoans(ctx context.Context, status circulation.Status) ([]*circulation.LoanView, error) {
	path := "/loans"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var views []*circulation.LoanView
	if err := c.call(ctx, "ListLoans", http.MethodGet, path, nil, http.StatusOK, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *CirculationClient) ListMemberLoans(ctx context.Context, memberID string) ([]*circulation.LoanView, error) {
	var views []*circulation.LoanView
	if err := c.call(ctx, "ListMemberLoans", http.MethodGet, "/members/"+url.PathEscape(memberID)+"/loans", nil, http.StatusOK, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *CirculationClient) call(ctx context.Context, operation, method, path string, payload any, want int, out any) error {
	resp, err := c.do(ctx, operation, method, path, payload)
	if err != nil {
		return err
	}

	if resp.status != want {
		msg := strings.TrimSpace(string(resp.body))
		switch resp.status {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", circulation.ErrNotFound, msg)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", circulation.ErrConflict, msg)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", circulation.ErrInvalidArgument, msg)
		default:
			return unexpected(resp.status)
		}
	}
	return resp.decode(out)
}
