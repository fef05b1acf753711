package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidatesPipesAndChannel(t *testing.T) {
	_, err := Load([]string{"--role=master", "--tx-pipe=AABBCCDDEE", "--rx-pipe=1122334455"}, "")
	require.NoError(t, err)

	_, err = Load([]string{"--role=master", "--tx-pipe=AABBCCDDEE", "--rx-pipe=AABBCCDDEE"}, "")
	assert.Error(t, err, "identical tx/rx pipes must be rejected")

	_, err = Load([]string{"--role=bogus", "--tx-pipe=AABBCCDDEE", "--rx-pipe=1122334455"}, "")
	assert.Error(t, err, "an unrecognized role must be rejected")

	_, err = Load([]string{"--role=master", "--tx-pipe=AABBCCDDEE", "--rx-pipe=1122334455", "--channel=200"}, "")
	assert.Error(t, err, "a channel outside 0-125 must be rejected")
}

func TestValidatePeeringRequiresSwappedPipes(t *testing.T) {
	master := Config{TxPipe: "AABBCCDDEE", RxPipe: "1122334455"}
	slaveOK := Config{TxPipe: "1122334455", RxPipe: "AABBCCDDEE"}
	slaveBad := Config{TxPipe: "AABBCCDDEE", RxPipe: "1122334455"}

	assert.NoError(t, master.ValidatePeering(slaveOK))
	assert.Error(t, master.ValidatePeering(slaveBad))
}
