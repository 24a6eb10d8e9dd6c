// Package valuation implements the deterministic multi-scenario
// valuation engine.
//
// For each named scenario it projects free cash flows over the forecast
// horizon, discounts them at a capital-structure-weighted rate with a
// CAPM cost of equity, adds a discounted terminal value, and derives a
// per-share fair value. Scenario fair values are combined into a
// probability-weighted value, cross-checked against independently
// derived methods (peer multiples, dividend discount) and flagged, not
// clamped, when the result is implausible against the reference price.
package valuation
