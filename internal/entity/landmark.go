package entity

type Vertex struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Landmark struct {
	Description string     `json:"description"`
	Score       float64    `json:"score"`
	Polygon     []Vertex   `json:"polygon"`
	Locations   []GeoPoint `json:"locations,omitempty"`
}

type DetectionBox struct {
	ID         int     `json:"id"`
	Label      string  `json:"label"`
	ClassIndex int     `json:"class_index"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}
