package msh

// rigTypes maps skeleton rig ids to the rig type names used by the game.
var rigTypes = map[uint32]string{
	16792576:   "fac_catering0",
	16815616:   "MiniatureCar",
	50345472:   "p_barbell",
	50346752:   "fac_postproduction",
	50382592:   "fac_research",
	50412288:   "p_white_flag",
	50432512:   "p_mesuring_tape",
	50461184:   "p_baby",
	67305984:   "p_fake_magnum",
	67338496:   "p_rubbish_bag_skinned",
	83908096:   "p_newspaper",
	84299264:   "p_flyingsaucer_crane",
	101327872:  "p_flyingsaucers_crane",
	117498624:  "p_script",
	118044416:  "p_firehydrant_skinned",
	118307072:  "p_flag",
	118318336:  "fac_casting_office",
	118335744:  "fac_gatehouse",
	118356736:  "fac_wardrobe",
	134234624:  "toplevel_0",
	134830848:  "p_dustbin_skinned",
	151010560:  "p_rope_rappel",
	151011072:  "p_cardboard_boxes_skinned",
	151044864:  "p_umbrella",
	152633600:  "fac_publicity_office",
	167792640:  "p_crashmatt",
	218106624:  "mouth",
	255528448:  "Rat",
	256829440:  "p_reins",
	268445696:  "toplevel_2",
	285223936:  "testbed1",
	288000512:  "Dove",
	310692608:  "p_rope",
	364778496:  "p_skid_01",
	385932544:  "DeformableCar",
	419484928:  "eyes_shape",
	503337984:  "toplevel_1",
	507812352:  "Human",
	593856256:  "Ant",
	869586944:  "Cow",
	872581632:  "Dog",
	946091264:  "p_curtain_",
	946110464:  "ShowerCurtain",
	994903296:  "Horse",
	1094395392: "generic_facialskin",
	1718751744: "hat_m_fireman_v00",
	1811973376: "sm_generic",
	2123804160: "hat_m_fireman_v01",
}

// RigType returns the rig type name of a rig id.
func RigType(id uint32) (string, bool) {
	name, ok := rigTypes[id]
	return name, ok
}

// RigID looks up the rig id of a rig type name.
func RigID(name string) (uint32, bool) {
	for id, n := range rigTypes {
		if n == name {
			return id, true
		}
	}
	return 0, false
}
