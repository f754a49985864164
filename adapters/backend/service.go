package backend

import (
	"context"
	"fmt"
	"log"

	"basketboard/domain/rules"
	"basketboard/domain/segmentation"
	"basketboard/internal/errors"
)

// Login exchanges credentials for a bearer token and user identity.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}

	var resp LoginResponse
	if err := c.postJSON(ctx, "/login", payload, "Login failed", &resp); err != nil {
		return nil, asAuthError(err)
	}
	if resp.AccessToken == "" {
		return nil, errors.DataShape("login response carried no access token")
	}

	log.Printf("[Backend] Logged in as %s (user %d)", resp.Username, resp.UserID)
	return &resp, nil
}

// Register creates an account. It does not establish a session; the
// caller should redirect to login on success.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	payload := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	if err := c.postJSON(ctx, "/register", payload, "Registration failed", nil); err != nil {
		return asAuthError(err)
	}
	return nil
}

// DashboardStats fetches the latest dataset snapshot.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.getJSON(ctx, "/dashboard-stats", "Failed to load dashboard stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Upload submits one or more CSV files as a multipart request. Callers
// must pre-filter to CSV content; an empty list is rejected here, before
// any network round trip.
func (c *Client) Upload(ctx context.Context, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, errors.ValidationError("no files to upload")
	}

	var result UploadResult
	if err := c.postMultipart(ctx, "/upload-data", files, "Failed to upload data", &result); err != nil {
		return nil, err
	}

	log.Printf("[Backend] Upload accepted: %d rows, %d columns", result.Rows, result.Columns)
	return &result, nil
}

// RunSegmentation triggers a synchronous K-Means run on the backend.
func (c *Client) RunSegmentation(ctx context.Context, nClusters int) (*segmentation.Result, error) {
	payload := map[string]int{"n_clusters": nClusters}

	var result segmentation.Result
	if err := c.postJSON(ctx, "/kmeans-analysis", payload, "Failed to run K-Means", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunRuleMining triggers a synchronous association-rule run. Threshold
// values of 0 defer to the backend's defaults.
func (c *Client) RunRuleMining(ctx context.Context, minSupport, minConfidence float64) (*rules.Result, error) {
	payload := map[string]float64{}
	if minSupport > 0 {
		payload["min_support"] = minSupport
	}
	if minConfidence > 0 {
		payload["min_confidence"] = minConfidence
	}

	var result rules.Result
	if err := c.postJSON(ctx, "/market-basket-analysis", payload, "Failed to run analysis", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetClusterLabels pushes the complete cluster label map to the backend.
func (c *Client) SetClusterLabels(ctx context.Context, labels map[int]string) error {
	// The endpoint keys its map by stringified cluster ids.
	stringKeyed := make(map[string]string, len(labels))
	for id, category := range labels {
		stringKeyed[fmt.Sprintf("%d", id)] = category
	}
	payload := map[string]interface{}{"labels": stringKeyed}

	return c.postJSON(ctx, "/set-cluster-labels", payload, "Failed to save cluster labels", nil)
}

// Recommend asks for products related to a cart.
func (c *Client) Recommend(ctx context.Context, cart []string) (*RecommendResult, error) {
	if len(cart) == 0 {
		return nil, errors.ValidationError("cart must contain at least one item")
	}

	payload := map[string][]string{"cart": cart}
	var result RecommendResult
	if err := c.postJSON(ctx, "/recommend", payload, "Failed to fetch recommendations", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadResults fetches the backend's raw CSV results blob.
func (c *Client) DownloadResults(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, "/download-results", "Failed to download results")
}

// asAuthError re-codes backend rejections of credentials or registrations
// so they surface as auth failures, leaving network errors untouched.
func asAuthError(err error) error {
	if errors.GetCode(err) == errors.CodeServerError {
		return errors.AuthError(err.Error())
	}
	return err
}
