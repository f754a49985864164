package backend

import "encoding/json"

// CategoryCount is one entry of the dashboard's top-categories breakdown.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DashboardStats is the latest-known snapshot of the uploaded dataset.
// Refetched after login and after each successful upload; no history kept.
type DashboardStats struct {
	TotalCustomers     int             `json:"total_customers"`
	TotalProducts      int             `json:"total_products"`
	TotalTransactions  int             `json:"total_transactions"`
	Rows               int             `json:"rows"`
	Columns            int             `json:"columns"`
	TopCategories      []CategoryCount `json:"top_categories,omitempty"`
	CustomersChange    string          `json:"customers_change,omitempty"`
	ProductsChange     string          `json:"products_change,omitempty"`
	TransactionsChange string          `json:"transactions_change,omitempty"`
	RowsChange         string          `json:"rows_change,omitempty"`
	ColumnsChange      string          `json:"columns_change,omitempty"`
}

// UploadResult reports the server-side aggregation of an upload.
type UploadResult struct {
	Message string `json:"message"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// UploadFile is one CSV file queued for a multipart upload.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// LoginResponse carries the bearer credential and user identity.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
}

// Recommendation is one suggested product for a cart.
type Recommendation struct {
	Product string `json:"product"`
	Reason  string `json:"reason,omitempty"`
}

// RecommendResult is the payload of a recommend call. The backend may
// send bare product strings or objects; decoding tolerates both.
type RecommendResult struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// UnmarshalJSON tolerates the backend returning recommendations as plain
// strings instead of objects.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var product string
	if err := json.Unmarshal(data, &product); err == nil {
		r.Product = product
		return nil
	}

	type alias Recommendation
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Recommendation(a)
	return nil
}
