package verify

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// MsgType is a kind of transaction message. Each type has a detail table
// of the same name.
type MsgType int

const (
	MsgGrant MsgType = iota
	MsgExec
	MsgRevoke
	MsgSend
	MsgMultiSend
	MsgVerifyInvariant
	MsgSetWithdrawAddress
	MsgWithdrawDelegatorReward
	MsgWithdrawValidatorCommission
	MsgFundCommunityPool
	MsgSubmitEvidence
	MsgGrantAllowance
	MsgRevokeAllowance
	MsgSubmitProposal
	MsgVoteProposal
	MsgDepositProposal
	MsgVoteWeightedProposal
	MsgUnjail
	MsgDelegate
	MsgBeginRedelegate
	MsgUndelegate
	MsgCancelUnbondingDelegation

	numMsgTypes
)

// msgTypes holds the table name of every MsgType, indexed by value.
var msgTypes = [numMsgTypes]string{
	MsgGrant:                       "msggrant",
	MsgExec:                        "msgexec",
	MsgRevoke:                      "msgrevoke",
	MsgSend:                        "msgsend",
	MsgMultiSend:                   "msgmultisend",
	MsgVerifyInvariant:             "msgverifyinvariant",
	MsgSetWithdrawAddress:          "msgsetwithdrawaddress",
	MsgWithdrawDelegatorReward:     "msgwithdrawdelegatorreward",
	MsgWithdrawValidatorCommission: "msgwithdrawvalidatorcommission",
	MsgFundCommunityPool:           "msgfundcommunitypool",
	MsgSubmitEvidence:              "msgsubmitevidence",
	MsgGrantAllowance:              "msggrantallowance",
	MsgRevokeAllowance:             "msgrevokeallowance",
	MsgSubmitProposal:              "msgsubmitproposal",
	MsgVoteProposal:                "msgvoteproposal",
	MsgDepositProposal:             "msgdepositproposal",
	MsgVoteWeightedProposal:        "msgvoteweightedproposal",
	MsgUnjail:                      "msgunjail",
	MsgDelegate:                    "msgdelegate",
	MsgBeginRedelegate:             "msgbeginredelegate",
	MsgUndelegate:                  "msgundelegate",
	MsgCancelUnbondingDelegation:   "msgcancelunbondingdelegation",
}

// TableName is the name of the detail table holding messages of this type.
func (t MsgType) TableName() string {
	if t < 0 || t >= numMsgTypes {
		return ""
	}
	return msgTypes[t]
}

func (t MsgType) String() string {
	return t.TableName()
}

// AllMsgTypes returns every message type in declaration order.
func AllMsgTypes() []MsgType {
	ret := make([]MsgType, numMsgTypes)
	for i := range ret {
		ret[i] = MsgType(i)
	}
	return ret
}

// ParseMsgType resolves a message type from its table name. Matching is
// case-insensitive.
func ParseMsgType(s string) (MsgType, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for i, name := range msgTypes {
		if name == lower {
			return MsgType(i), nil
		}
	}
	return 0, errors.Newf("unknown message type %q", s)
}

// ParseMsgTypes resolves a list of message type names, rejecting
// duplicates.
func ParseMsgTypes(names []string) ([]MsgType, error) {
	seen := make(map[MsgType]struct{}, len(names))
	ret := make([]MsgType, 0, len(names))
	for _, name := range names {
		t, err := ParseMsgType(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			return nil, errors.Newf("message type %s given more than once", t)
		}
		seen[t] = struct{}{}
		ret = append(ret, t)
	}
	return ret, nil
}
