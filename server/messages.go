package server

import "fmt"

func mainPage(appName, version string) string {
	return fmt.Sprintf(`%s - SomToday App Proxy is running!

Dit is een proxy die requests doorstuurt naar SomToday en de responses terugstuurt naar de client.
Op deze manier kunnen we de authenticatie van SomToday gebruiken en de responses (voornamelijk de token) opvangen.

Wil je een login sessie aanvragen? Gebruik dan /requestUrl

Current version: %s`, appName, version)
}

const (
	missingParametersMessage = `Missing parameter(s)
- user=<username> this is the user you want to authenticate, this can be any value and is not used by STAP in any way, it is just a value sent back to you so you know who was authenticated
- callbackUrl=<callback url> this is the url where the token will be sent to, this can be any url you want, it is not validated by STAP. The token will be sent as a POST request with a JSON body
- spoonfeed=true (optional) STAP exchanges the authorization code itself and sends you the tokens instead of the code`

	malformedFlowMessage = "Hmm, this is not right, you didn't follow the instructions, did you?"

	sessionNotFoundMessage = "Failed to authenticate user, you can discard the login attempt at your side, it has been deleted on this side"

	spoonfeedFailedMessage = "Failed to exchange the authorization code with SomToday"
)
