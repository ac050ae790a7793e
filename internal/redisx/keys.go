package redisx

import "time"

const (
	// Operator session: session:{session_id} -> JSON session
	KeySession = "session:%s"

	// Lifecycle guard: lock:{resource} (resource = book:{id} | loan:{id}) -> owner token
	KeyLock = "lock:%s"
)

var (
	// TTLLock bounds how long a crashed holder can block a book or loan. A
	// live holder renews it until release.
	TTLLock = 30 * time.Second
)
