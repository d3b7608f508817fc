// Package jwt authenticates requests carrying HMAC signed bearer tokens.
//
// An Authenticator is built from a shared secret and turns an Authorization
// header into verified Claims or a CredentialError. Failures fall into three
// distinguishable classes:
//
//   - ErrMissingCredential: no header, or not of the Bearer scheme
//   - ErrExpiredCredential: signature valid, expiry passed
//   - ErrInvalidCredential: anything else (bad signature, malformed token,
//     wrong algorithm, missing expiry)
//
// # Verification
//
//	auth, err := jwt.NewAuthenticator(jwt.Config{Secret: secret})
//	if err != nil {
//	    return err // configuration fault
//	}
//
//	claims, err := auth.Verify(ctx, r.Header.Get("Authorization"))
//	switch {
//	case errors.Is(err, jwt.ErrExpiredCredential):
//	    // ask the caller to log in again
//	case err != nil:
//	    // reject
//	}
//
// # Issuing
//
//	token, err := auth.Issue(ctx, jwt.Principal{ID: "42", Email: "a@b.c", Role: "admin"})
package jwt
