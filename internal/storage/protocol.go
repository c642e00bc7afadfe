package storage

// Line-delimited JSON protocol spoken between Client and Server over a Unix
// domain socket. Each request gets exactly one response.

const (
	opGet    = "get"
	opSet    = "set"
	opRemove = "remove"
	opKeys   = "keys"
)

type Request struct {
	Op    string `json:"op"` // "get" | "set" | "remove" | "keys"
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

type Response struct {
	OK    bool     `json:"ok"`
	Found bool     `json:"found,omitempty"`
	Value string   `json:"value,omitempty"`
	Keys  []string `json:"keys,omitempty"`
	Error string   `json:"error,omitempty"`
}
