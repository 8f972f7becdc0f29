// Package storage persists the bot's runtime documents as human-readable
// JSON files, one file per logical name (users, settings, last_codes).
//
// The contract is deliberately forgiving:
//   - Load fails open: a missing or corrupt file leaves the caller's default
//     untouched instead of returning an error.
//   - Save is best-effort: failures are logged and swallowed so a full disk
//     never takes a scheduler tick down with it.
package storage
