// Package inkpad wires the note-taking service together: configuration
// parsing, store and cache selection, the HTTP API, and the OAuth sign-in
// flow.
//
// The package follows a command pattern. [Parse] turns CLI arguments and
// environment variables into a [Command] and a [Config]; [Main] builds an
// [App] from the config and dispatches on the command type. The two commands
// are "run" (serve the API) and "migrate" (apply the database schema).
//
// The HTTP surface lives under /api and speaks JSON. Authenticated endpoints
// expect a bearer JWT minted by the Google OAuth callback; error responses
// are always {"error": string} with status 401, 404, or 500.
package inkpad
