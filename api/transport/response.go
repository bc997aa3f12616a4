package transport

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every API response, successful or not.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// ListMeta describes a collection payload.
type ListMeta struct {
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

// NewList is a success envelope carrying the item count.
func NewList(data interface{}, count, limit int) Envelope {
	return NewSuccess(data, ListMeta{Count: count, Limit: limit})
}

// NewError builds an error envelope; code is a domain error code or a
// transport specific one such as DEGRADED.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: err, Meta: meta}
}
