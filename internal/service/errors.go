package service

import "fmt"

type ErrEventQueueFull struct{}

func (e ErrEventQueueFull) Error() string {
	return "event queue is full"
}

func NewErrEventQueueFull() *ErrEventQueueFull {
	return &ErrEventQueueFull{}
}

type ErrDuplicateDelivery struct {
	DeliveryID string
}

func (e ErrDuplicateDelivery) Error() string {
	return fmt.Sprintf("delivery %q has already been processed", e.DeliveryID)
}
