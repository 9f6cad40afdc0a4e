package posting

import "github.com/antflydb/antfly/antflyerr"

var errShortBuffer = antflyerr.New(antflyerr.BackendFailure, "posting buffer truncated")
