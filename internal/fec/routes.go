package fec

import (
	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

const (
	KindGeneralFEData       dispatch.Kind = "fec_general_fe_data"
	KindSpecificTrainerData dispatch.Kind = "fec_specific_trainer_data"
	KindCommandStatus       dispatch.Kind = "fec_command_status"
	KindUnknownPage         dispatch.Kind = "fec_unknown_page"
)

// RegisterRoutes installs the page decoders for frames from the FE-C notify
// characteristic. Frames must already be addressed by page, which the
// Controller does after unwrapping the ANT message.
func RegisterRoutes(reg *dispatch.Registry) {
	notify := gatt.CharTacxFECNotify
	reg.Route(dispatch.ForPage(notify, PageGeneralFEData), KindGeneralFEData, dispatch.Decode(DecodeGeneralFEData))
	reg.Route(dispatch.ForPage(notify, PageSpecificTrainerData), KindSpecificTrainerData, dispatch.Decode(DecodeSpecificTrainerData))
	reg.Route(dispatch.ForPage(notify, PageCommandStatus), KindCommandStatus, dispatch.Decode(DecodeCommandStatusData))
	reg.Route(dispatch.ForCharacteristic(notify), KindUnknownPage, func(frame gatt.RawFrame) (any, error) {
		if frame.Origin.Page == gatt.NoPage {
			return nil, codec.NewDecodeError("page number", 0, codec.ErrMalformed)
		}
		return DecodeUnknownPage(frame.Data)
	})
}
