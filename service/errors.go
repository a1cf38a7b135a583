package service

import (
	"errors"

	"github.com/crown_ledger/model"
)

func isNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }

func isAlreadyDistributed(err error) bool {
	return errors.Is(err, model.ErrCommissionAlreadyDistributed)
}
