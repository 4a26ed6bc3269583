package errors

import "fmt"

var (
	ErrNotAuthenticated  = fmt.Errorf("no authenticated user")
	ErrSelfConnection    = fmt.Errorf("cannot connect to yourself")
	ErrRequestNotFound   = fmt.Errorf("connection request not found")
	ErrRequestNotPending = fmt.Errorf("connection request is not pending")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrPathEmpty         = fmt.Errorf("store path is empty")
	ErrSubscriptionDone  = fmt.Errorf("subscription already closed")
)
