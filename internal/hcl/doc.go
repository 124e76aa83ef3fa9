// Package hcl provides the HCL implementation of config.Loader. It is
// responsible for file discovery, parsing, block decoding and the
// conversion of cty values into parameter values.
//
// A network file looks like:
//
//	horizon {
//	  periods    = 24
//	  resolution = 1
//	}
//
//	element "grid" "grid" {
//	  import_price = 0.30
//	  export_price = 0.05
//	}
//
//	element "load" "house" {
//	  forecast = "house_forecast" # deferred until an update fills it
//	}
//
//	connection "grid_to_house" {
//	  source = "grid"
//	  target = "house"
//
//	  segment "fuse" {
//	    kind        = "power_limit"
//	    max_forward = 10
//	  }
//	}
//
// A string where a number or list is expected is a deferred placeholder
// naming the source that will fill it.
package hcl
