// Package model defines the internal budget entities, the value codec used by
// change-log messages, and the date and month helpers shared by every layer.
//
// Internal shapes mirror table columns: dates are YYYYMMDD integers, months are
// "YYYY-MM" strings, amounts are integer minor units (cents), and empty strings
// stand for NULL foreign keys.
package model
