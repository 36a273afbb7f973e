package client

var IsCircuitBreakerError = isCircuitBreakerError

var BreakerError = breakerError

var RetryOptions = retryOptions

var TransportCredentials = transportCredentials
