package awssim

import (
	"fmt"
	"net/http"

	sim "github.com/sockerless/cloudtour/simulator"
)

func registerSTS(r *sim.AWSQueryRouter) {
	r.Register("GetCallerIdentity", handleGetCallerIdentity)
}

// handleGetCallerIdentity reports the signing access key as the caller.
func handleGetCallerIdentity(w http.ResponseWriter, r *http.Request) {
	user := sim.Identity(r.Context())
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `<GetCallerIdentityResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
  <GetCallerIdentityResult>
    <Arn>arn:aws:iam::%s:user/%s</Arn>
    <UserId>%s</UserId>
    <Account>%s</Account>
  </GetCallerIdentityResult>
  <ResponseMetadata><RequestId>%s</RequestId></ResponseMetadata>
</GetCallerIdentityResponse>`, ec2Owner, sim.XMLEscape(user), sim.XMLEscape(user), ec2Owner, sim.RequestID(r.Context()))
}
