// Package server exposes a single editing session over a JSON HTTP API.
//
// One Server owns one session.Session. Handlers serialize access with a
// mutex, so concurrent clients see a consistent buffer and a failed edit
// never leaves a partial write behind.
//
// # Routes
//
//	GET  /api/version                  build information
//	GET  /api/profiles                 profile catalog
//	GET  /api/profiles/{name}/maps     map definitions of a profile
//	POST /api/session?profile=NAME     load the raw request body as an image
//	GET  /api/session                  state, checksum report and edit history
//	GET  /api/session/maps/{name}      decoded map values
//	PUT  /api/session/maps/{name}      replace a map: {"values": [[...], ...]}
//	POST /api/session/undo             revert the most recent edit
//	POST /api/session/finalize         download the checksummed image
//	GET  /api/events                   WebSocket stream of session events
//
// When the profile query parameter is omitted on load, the image size picks
// the profile if exactly one catalog entry matches.
//
// Errors are returned as {"error", "kind", "details", "hints"} with the
// status derived from the error kind: unknown profiles and maps are 404,
// unparseable input is 400, rejected edits and size mismatches are 422 and
// calls made in the wrong session state are 409.
//
// # Usage Example
//
//	reg, _ := profile.Default()
//	srv, err := server.New(&server.Config{
//	    Host:      "127.0.0.1",
//	    Port:      8080,
//	    Advertise: true,
//	    Registry:  reg,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Discovery
//
// With Advertise set, the server registers ServiceType over mDNS with the
// TXT records path, version and tls. Browse finds advertised servers and
// returns their base URLs.
package server
