// Package ring is the entry point for the Ring client library.
//
// A Client ties together the token lifecycle (pkg/auth), the REST
// endpoints and event channels (pkg/events):
//
//	client, err := ring.New("Home Automation", systemID, ring.IOS)
//	if err != nil {
//	    return err
//	}
//
//	err = client.Login(ctx, ring.UserPassword{Username: user, Password: pass})
//	if errors.Is(err, auth.ErrMfaCodeRequired) {
//	    err = client.RespondToChallenge(ctx, code)
//	}
//
//	ch, err := client.Listen(ctx, locationID, events.HandlerFunc(
//	    func(ctx context.Context, e ring.Event, s *events.Sender) error {
//	        log.Println(e.Message.Kind)
//	        return nil
//	    }))
//	defer func() { ch.Terminate(); ch.Join() }()
//
// The refresh token returned by Client.RefreshToken can be stored and passed
// back as ring.RefreshToken on the next start to skip the password and MFA
// exchange.
package ring
