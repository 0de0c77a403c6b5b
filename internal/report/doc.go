// Package report builds the month-to-date cost reports served by the API.
//
// Each report follows the same steps: compute the current calendar month,
// issue exactly one query to the billing provider, and reshape the raw
// result into a JSON-ready envelope. Amounts are rounded to two decimal
// places with decimal arithmetic.
//
// Reports never fall back to zero values. An empty result, a grouped
// result without groups, or a missing metric fails with
// *provider.UpstreamError like any other upstream problem.
package report
