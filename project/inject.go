package project

import "github.com/google/uuid"

// frontdoorPath is the session handoff endpoint an access token is exchanged
// against. Opening it logs the browser session in before the first real
// command runs.
const frontdoorPath = "/secur/frontdoor.jsp?sid="

// InjectAuthentication prepends an authentication command to every test when
// an access token is supplied. Injected commands get fresh ids so the unique
// command id invariant holds.
func (p *Project) InjectAuthentication(token string) {
	if token == "" {
		return
	}
	for i := range p.Tests {
		auth := Command{
			ID:      uuid.NewString(),
			Comment: "session bootstrap",
			Command: "open",
			Target:  frontdoorPath + token,
		}
		p.Tests[i].Commands = append([]Command{auth}, p.Tests[i].Commands...)
	}
}

// InjectDebugEchoes interleaves a diagnostic echo after every command that
// carries a value, so the streamed runner output shows what each step was fed.
// Echo commands themselves are left alone to avoid echo chains.
func (p *Project) InjectDebugEchoes() {
	for i := range p.Tests {
		commands := make([]Command, 0, len(p.Tests[i].Commands)*2)
		for _, c := range p.Tests[i].Commands {
			commands = append(commands, c)
			if c.Value == "" || c.Command == "echo" {
				continue
			}
			commands = append(commands, Command{
				ID:      uuid.NewString(),
				Comment: "value probe",
				Command: "echo",
				Target:  c.Value,
			})
		}
		p.Tests[i].Commands = commands
	}
}
