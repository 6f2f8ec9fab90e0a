package user

import "errors"

var (
	ErrCustomerAlreadyLinked = errors.New("user is already linked to a different billing customer")
)
