// Package sso provides Google sign-on for QuestLog using OpenID Connect.
//
// # Flow
//
// The browser is sent to /oauth2/authorization/google, which sets a short
// lived state cookie and redirects to Google. Google redirects back to
// /login/oauth2/code/google, where the authorization code is exchanged, the
// ID token verified, and the user provisioned:
//
//  1. An existing account with the same email is reused. Only addresses
//     the provider reports as verified are accepted
//  2. Otherwise an account is created with the email's local part as
//     username (suffixed with a number when taken) and a random password
//  3. An API token is issued and the browser redirected to
//     <frontend>/oauth-callback?token=...&userId=...&username=...
//
// Any failure redirects to <frontend>/login?error=oauth_failed.
//
// # Usage
//
//	cfg := sso.GoogleConfig(clientID, clientSecret, "", "https://api.questlog.example")
//	google, err := sso.NewProvider(ctx, cfg)
//	handlers := sso.NewHandlers(sso.NewUserProvisioner(store, logger), authn, audit, frontendURL, logger, google)
//	handlers.RegisterRoutes(router)
package sso
