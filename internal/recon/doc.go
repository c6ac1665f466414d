// Package recon drives FreeSurfer's recon-all, the multi-hour cortical
// reconstruction step. A first-attempt timeout earns exactly one retry with
// an extended budget; every other failure is final.
package recon
