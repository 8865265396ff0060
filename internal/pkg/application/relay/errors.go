package relay

import "fmt"

type BadRequestDataError struct {
	msg string
}

func NewBadRequestDataError(msg string) BadRequestDataError {
	return BadRequestDataError{msg: msg}
}

func (brd BadRequestDataError) Error() string {
	return brd.msg
}

type UnknownTenantError struct {
	tenant string
}

func NewUnknownTenantError(tenant string) UnknownTenantError {
	return UnknownTenantError{tenant: tenant}
}

func (ute UnknownTenantError) Error() string {
	return fmt.Sprintf("unknown tenant %s", ute.tenant)
}
