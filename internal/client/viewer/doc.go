// Package viewer resolves SMART Health Links on the receiving side.
//
// Resolution is a finite state machine. Transition is the single pure
// function that moves a Snapshot from one State to the next; Resolver feeds
// it events produced by parsing the link, talking to the server through
// client.Client and decrypting the returned files.
//
//	r := viewer.NewResolver(c, "Dr. Who", 10<<20)
//	snap, _ := r.Open(link)
//	if snap.State == viewer.StatePasscodeRequired {
//	    snap, err = r.Resolve(ctx, passcode)
//	}
package viewer
