// Package secure keeps hydrated secrets encrypted in memory between the
// moment they are resolved and the moment a child process needs them.
//
// It wraps the memguard library:
//
//   - Values are sealed in XSalsa20Poly1305 enclaves
//   - Opened plaintext lives in mlocked buffers that are wiped on Destroy
//
// # Usage
//
//	env, err := secure.SealEnv(hydrated)
//	if err != nil {
//	    return err
//	}
//	defer env.Destroy()
//
//	vars, err := env.Reveal() // only right before exec
//
// Call memguard.Purge before the process exits to wipe every enclave key.
//
// This does NOT protect against an attacker with access to the running
// process, and the child process receives plain environment variables.
package secure
