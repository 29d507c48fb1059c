package entity

type APIClient struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
