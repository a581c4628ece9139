package helpers

// ReadNTargetsFromChannel drains up to n validated target FQDNs from ch,
// forming one fan-out batch for cmd/recon's domain loop. Returns fewer than n
// (possibly zero) once ch closes with targets left over.
func ReadNTargetsFromChannel(ch <-chan string, n int) []string {
	targets := make([]string, 0, n)
	for i := 0; i < n; i++ {
		target, ok := <-ch
		if !ok {
			break
		}
		targets = append(targets, target)
	}
	return targets
}
