package inhibit

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestJoinWhat(t *testing.T) {
	assert.Equal(t, "sleep", joinWhat([]What{WhatSleep}))
	assert.Equal(t, "sleep:shutdown:idle", joinWhat([]What{WhatSleep, WhatShutdown, WhatIdle}))
}
