package requestid

import "github.com/google/uuid"

const Header = "X-Request-ID"

func New() string {
	return uuid.NewString()
}
