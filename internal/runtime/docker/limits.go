package docker

import "arbiter/internal/domain/execution"

func normalizeLimits(l execution.RunLimits) execution.RunLimits {
	if l.TimeLimit < 0 {
		l.TimeLimit = 0
	}
	if l.MemoryLimitBytes < 0 {
		l.MemoryLimitBytes = 0
	}
	if l.PidsLimit < 0 {
		l.PidsLimit = 0
	}
	return l
}

func (c *containerEngine) effectiveLimits(request execution.RunLimits) execution.RunLimits {
	effective := c.defaultLimits
	overrides := normalizeLimits(request)

	if overrides.TimeLimit > 0 {
		effective.TimeLimit = overrides.TimeLimit
	}
	if overrides.MemoryLimitBytes > 0 {
		effective.MemoryLimitBytes = overrides.MemoryLimitBytes
	}
	if overrides.PidsLimit > 0 {
		effective.PidsLimit = overrides.PidsLimit
	}
	if effective.PidsLimit <= 0 {
		effective.PidsLimit = defaultPidsLimit
	}

	return effective
}
