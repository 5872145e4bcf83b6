package utils

// ResponseData is the JSON envelope of every API response.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics on a non-nil error; the recovery middleware
// turns typed errors into their HTTP responses.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
