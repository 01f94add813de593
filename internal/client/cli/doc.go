// Package cli provides the interactive crowdfund command-line client.
//
// It wires configuration, the keystore wallet, the session manager, the
// campaign synchronizer and the transaction orchestrator behind a small
// REPL. On start it silently restores a previously authorized session;
// reading campaigns without an account is opt-in via "browse".
//
// Key features:
//   - connect / disconnect / switch / revoke (one or all) wallet accounts
//   - list campaigns with a status filter and a title search
//   - create campaigns, contribute, release funds or claim refunds
//   - dashboards of created and backed campaigns
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
