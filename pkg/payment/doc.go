// Package payment opens payments with external providers and drives them
// through their lifecycle.
//
// # Lifecycle
//
//	pending -> completed -> refunded
//	        -> failed
//
// A payment is created pending once the provider has opened an order.
// Verification completes or fails it. Only completed payments can be
// captured or refunded. Every transition is written conditionally on the
// status it started from, so two concurrent verifications cannot both win.
//
// # Providers
//
// Providers are registered by name in a Registry. The razorpay and sandbox
// subpackages hold the implementations.
//
// # Amounts
//
// Amounts are stored as decimals and sent to providers in minor units
// (paise, cents), rounded to the nearest unit.
package payment
