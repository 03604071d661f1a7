package deploy

import (
	"context"

	"github.com/erik777/runkod-cli/apiclients/runkod"
	"github.com/erik777/runkod-cli/internal/ui"
)

// Activator makes a deployment the live version of its project.
type Activator interface {
	ActivateDeployment(ctx context.Context, projectID, deploymentID string) error
}

// Activate decides whether a deployment of the project goes live. With now set it
// is activated without asking. Otherwise an active deployment is left as it is and
// an inactive one is activated only if the user agrees. It reports whether the
// deployment is active afterwards; a declined prompt is not an error.
func Activate(ctx context.Context, api Activator, c Confirmer, projectID string, d runkod.Deployment, now bool) (bool, error) {
	if !now {
		if d.Active {
			return true, nil
		}
		ok, err := c.Confirm(ctx, ui.T("deploy.activate"))
		if err != nil || !ok {
			return false, err
		}
	}
	if err := api.ActivateDeployment(ctx, projectID, d.ID); err != nil {
		return false, err
	}
	return true, nil
}
