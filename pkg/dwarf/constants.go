package dwarf

import "fmt"

// Tag identifies the kind of a debugging information entry (DW_TAG_*).
type Tag uint64

// Attr identifies an attribute of a debugging information entry (DW_AT_*).
// Codes outside the table below are kept verbatim; Known reports whether a
// code has a name.
type Attr uint64

// Form identifies the wire encoding of an attribute value (DW_FORM_*).
type Form uint64

const (
	TagArrayType                Tag = 0x01
	TagClassType                Tag = 0x02
	TagEntryPoint               Tag = 0x03
	TagEnumerationType          Tag = 0x04
	TagFormalParameter          Tag = 0x05
	TagImportedDeclaration      Tag = 0x08
	TagLabel                    Tag = 0x0a
	TagLexicalBlock             Tag = 0x0b
	TagMember                   Tag = 0x0d
	TagPointerType              Tag = 0x0f
	TagReferenceType            Tag = 0x10
	TagCompileUnit              Tag = 0x11
	TagStringType               Tag = 0x12
	TagStructureType            Tag = 0x13
	TagSubroutineType           Tag = 0x15
	TagTypedef                  Tag = 0x16
	TagUnionType                Tag = 0x17
	TagUnspecifiedParameters    Tag = 0x18
	TagVariant                  Tag = 0x19
	TagCommonBlock              Tag = 0x1a
	TagCommonInclusion          Tag = 0x1b
	TagInheritance              Tag = 0x1c
	TagInlinedSubroutine        Tag = 0x1d
	TagModule                   Tag = 0x1e
	TagPtrToMemberType          Tag = 0x1f
	TagSetType                  Tag = 0x20
	TagSubrangeType             Tag = 0x21
	TagWithStmt                 Tag = 0x22
	TagAccessDeclaration        Tag = 0x23
	TagBaseType                 Tag = 0x24
	TagCatchBlock               Tag = 0x25
	TagConstType                Tag = 0x26
	TagConstant                 Tag = 0x27
	TagEnumerator               Tag = 0x28
	TagFileType                 Tag = 0x29
	TagFriend                   Tag = 0x2a
	TagNamelist                 Tag = 0x2b
	TagNamelistItem             Tag = 0x2c
	TagPackedType               Tag = 0x2d
	TagSubprogram               Tag = 0x2e
	TagTemplateTypeParameter    Tag = 0x2f
	TagTemplateValueParameter   Tag = 0x30
	TagThrownType               Tag = 0x31
	TagTryBlock                 Tag = 0x32
	TagVariantPart              Tag = 0x33
	TagVariable                 Tag = 0x34
	TagVolatileType             Tag = 0x35
	TagDwarfProcedure           Tag = 0x36
	TagRestrictType             Tag = 0x37
	TagInterfaceType            Tag = 0x38
	TagNamespace                Tag = 0x39
	TagImportedModule           Tag = 0x3a
	TagUnspecifiedType          Tag = 0x3b
	TagPartialUnit              Tag = 0x3c
	TagImportedUnit             Tag = 0x3d
	TagCondition                Tag = 0x3f
	TagSharedType               Tag = 0x40
	TagTypeUnit                 Tag = 0x41
	TagRvalueReferenceType      Tag = 0x42
	TagTemplateAlias            Tag = 0x43
	TagCoarrayType              Tag = 0x44
	TagGenericSubrange          Tag = 0x45
	TagDynamicType              Tag = 0x46
	TagAtomicType               Tag = 0x47
	TagCallSite                 Tag = 0x48
	TagCallSiteParameter        Tag = 0x49
	TagSkeletonUnit             Tag = 0x4a
	TagImmutableType            Tag = 0x4b
	TagMIPSLoop                 Tag = 0x4081
	TagFormatLabel              Tag = 0x4101
	TagFunctionTemplate         Tag = 0x4102
	TagClassTemplate            Tag = 0x4103
	TagGNUTemplateTemplateParam Tag = 0x4106
	TagGNUTemplateParameterPack Tag = 0x4107
	TagGNUFormalParameterPack   Tag = 0x4108
	TagGNUCallSite              Tag = 0x4109
	TagGNUCallSiteParameter     Tag = 0x410a
)

var tagNames = map[Tag]string{
	TagArrayType:                "DW_TAG_array_type",
	TagClassType:                "DW_TAG_class_type",
	TagEntryPoint:               "DW_TAG_entry_point",
	TagEnumerationType:          "DW_TAG_enumeration_type",
	TagFormalParameter:          "DW_TAG_formal_parameter",
	TagImportedDeclaration:      "DW_TAG_imported_declaration",
	TagLabel:                    "DW_TAG_label",
	TagLexicalBlock:             "DW_TAG_lexical_block",
	TagMember:                   "DW_TAG_member",
	TagPointerType:              "DW_TAG_pointer_type",
	TagReferenceType:            "DW_TAG_reference_type",
	TagCompileUnit:              "DW_TAG_compile_unit",
	TagStringType:               "DW_TAG_string_type",
	TagStructureType:            "DW_TAG_structure_type",
	TagSubroutineType:           "DW_TAG_subroutine_type",
	TagTypedef:                  "DW_TAG_typedef",
	TagUnionType:                "DW_TAG_union_type",
	TagUnspecifiedParameters:    "DW_TAG_unspecified_parameters",
	TagVariant:                  "DW_TAG_variant",
	TagCommonBlock:              "DW_TAG_common_block",
	TagCommonInclusion:          "DW_TAG_common_inclusion",
	TagInheritance:              "DW_TAG_inheritance",
	TagInlinedSubroutine:        "DW_TAG_inlined_subroutine",
	TagModule:                   "DW_TAG_module",
	TagPtrToMemberType:          "DW_TAG_ptr_to_member_type",
	TagSetType:                  "DW_TAG_set_type",
	TagSubrangeType:             "DW_TAG_subrange_type",
	TagWithStmt:                 "DW_TAG_with_stmt",
	TagAccessDeclaration:        "DW_TAG_access_declaration",
	TagBaseType:                 "DW_TAG_base_type",
	TagCatchBlock:               "DW_TAG_catch_block",
	TagConstType:                "DW_TAG_const_type",
	TagConstant:                 "DW_TAG_constant",
	TagEnumerator:               "DW_TAG_enumerator",
	TagFileType:                 "DW_TAG_file_type",
	TagFriend:                   "DW_TAG_friend",
	TagNamelist:                 "DW_TAG_namelist",
	TagNamelistItem:             "DW_TAG_namelist_item",
	TagPackedType:               "DW_TAG_packed_type",
	TagSubprogram:               "DW_TAG_subprogram",
	TagTemplateTypeParameter:    "DW_TAG_template_type_parameter",
	TagTemplateValueParameter:   "DW_TAG_template_value_parameter",
	TagThrownType:               "DW_TAG_thrown_type",
	TagTryBlock:                 "DW_TAG_try_block",
	TagVariantPart:              "DW_TAG_variant_part",
	TagVariable:                 "DW_TAG_variable",
	TagVolatileType:             "DW_TAG_volatile_type",
	TagDwarfProcedure:           "DW_TAG_dwarf_procedure",
	TagRestrictType:             "DW_TAG_restrict_type",
	TagInterfaceType:            "DW_TAG_interface_type",
	TagNamespace:                "DW_TAG_namespace",
	TagImportedModule:           "DW_TAG_imported_module",
	TagUnspecifiedType:          "DW_TAG_unspecified_type",
	TagPartialUnit:              "DW_TAG_partial_unit",
	TagImportedUnit:             "DW_TAG_imported_unit",
	TagCondition:                "DW_TAG_condition",
	TagSharedType:               "DW_TAG_shared_type",
	TagTypeUnit:                 "DW_TAG_type_unit",
	TagRvalueReferenceType:      "DW_TAG_rvalue_reference_type",
	TagTemplateAlias:            "DW_TAG_template_alias",
	TagCoarrayType:              "DW_TAG_coarray_type",
	TagGenericSubrange:          "DW_TAG_generic_subrange",
	TagDynamicType:              "DW_TAG_dynamic_type",
	TagAtomicType:               "DW_TAG_atomic_type",
	TagCallSite:                 "DW_TAG_call_site",
	TagCallSiteParameter:        "DW_TAG_call_site_parameter",
	TagSkeletonUnit:             "DW_TAG_skeleton_unit",
	TagImmutableType:            "DW_TAG_immutable_type",
	TagMIPSLoop:                 "DW_TAG_MIPS_loop",
	TagFormatLabel:              "DW_TAG_format_label",
	TagFunctionTemplate:         "DW_TAG_function_template",
	TagClassTemplate:            "DW_TAG_class_template",
	TagGNUTemplateTemplateParam: "DW_TAG_GNU_template_template_param",
	TagGNUTemplateParameterPack: "DW_TAG_GNU_template_parameter_pack",
	TagGNUFormalParameterPack:   "DW_TAG_GNU_formal_parameter_pack",
	TagGNUCallSite:              "DW_TAG_GNU_call_site",
	TagGNUCallSiteParameter:     "DW_TAG_GNU_call_site_parameter",
}

const (
	AttrSibling              Attr = 0x01
	AttrLocation             Attr = 0x02
	AttrName                 Attr = 0x03
	AttrOrdering             Attr = 0x09
	AttrByteSize             Attr = 0x0b
	AttrBitOffset            Attr = 0x0c
	AttrBitSize              Attr = 0x0d
	AttrStmtList             Attr = 0x10
	AttrLowPC                Attr = 0x11
	AttrHighPC               Attr = 0x12
	AttrLanguage             Attr = 0x13
	AttrDiscr                Attr = 0x15
	AttrDiscrValue           Attr = 0x16
	AttrVisibility           Attr = 0x17
	AttrImport               Attr = 0x18
	AttrStringLength         Attr = 0x19
	AttrCommonReference      Attr = 0x1a
	AttrCompDir              Attr = 0x1b
	AttrConstValue           Attr = 0x1c
	AttrContainingType       Attr = 0x1d
	AttrDefaultValue         Attr = 0x1e
	AttrInline               Attr = 0x20
	AttrIsOptional           Attr = 0x21
	AttrLowerBound           Attr = 0x22
	AttrProducer             Attr = 0x25
	AttrPrototyped           Attr = 0x27
	AttrReturnAddr           Attr = 0x2a
	AttrStartScope           Attr = 0x2c
	AttrBitStride            Attr = 0x2e
	AttrUpperBound           Attr = 0x2f
	AttrAbstractOrigin       Attr = 0x31
	AttrAccessibility        Attr = 0x32
	AttrAddressClass         Attr = 0x33
	AttrArtificial           Attr = 0x34
	AttrBaseTypes            Attr = 0x35
	AttrCallingConvention    Attr = 0x36
	AttrCount                Attr = 0x37
	AttrDataMemberLocation   Attr = 0x38
	AttrDeclColumn           Attr = 0x39
	AttrDeclFile             Attr = 0x3a
	AttrDeclLine             Attr = 0x3b
	AttrDeclaration          Attr = 0x3c
	AttrDiscrList            Attr = 0x3d
	AttrEncoding             Attr = 0x3e
	AttrExternal             Attr = 0x3f
	AttrFrameBase            Attr = 0x40
	AttrFriend               Attr = 0x41
	AttrIdentifierCase       Attr = 0x42
	AttrMacroInfo            Attr = 0x43
	AttrNamelistItem         Attr = 0x44
	AttrPriority             Attr = 0x45
	AttrSegment              Attr = 0x46
	AttrSpecification        Attr = 0x47
	AttrStaticLink           Attr = 0x48
	AttrType                 Attr = 0x49
	AttrUseLocation          Attr = 0x4a
	AttrVariableParameter    Attr = 0x4b
	AttrVirtuality           Attr = 0x4c
	AttrVtableElemLocation   Attr = 0x4d
	AttrAllocated            Attr = 0x4e
	AttrAssociated           Attr = 0x4f
	AttrDataLocation         Attr = 0x50
	AttrByteStride           Attr = 0x51
	AttrEntryPC              Attr = 0x52
	AttrUseUTF8              Attr = 0x53
	AttrExtension            Attr = 0x54
	AttrRanges               Attr = 0x55
	AttrTrampoline           Attr = 0x56
	AttrCallColumn           Attr = 0x57
	AttrCallFile             Attr = 0x58
	AttrCallLine             Attr = 0x59
	AttrDescription          Attr = 0x5a
	AttrBinaryScale          Attr = 0x5b
	AttrDecimalScale         Attr = 0x5c
	AttrSmall                Attr = 0x5d
	AttrDecimalSign          Attr = 0x5e
	AttrDigitCount           Attr = 0x5f
	AttrPictureString        Attr = 0x60
	AttrMutable              Attr = 0x61
	AttrThreadsScaled        Attr = 0x62
	AttrExplicit             Attr = 0x63
	AttrObjectPointer        Attr = 0x64
	AttrEndianity            Attr = 0x65
	AttrElemental            Attr = 0x66
	AttrPure                 Attr = 0x67
	AttrRecursive            Attr = 0x68
	AttrSignature            Attr = 0x69
	AttrMainSubprogram       Attr = 0x6a
	AttrDataBitOffset        Attr = 0x6b
	AttrConstExpr            Attr = 0x6c
	AttrEnumClass            Attr = 0x6d
	AttrLinkageName          Attr = 0x6e
	AttrStringLengthBitSize  Attr = 0x6f
	AttrStringLengthByteSize Attr = 0x70
	AttrRank                 Attr = 0x71
	AttrStrOffsetsBase       Attr = 0x72
	AttrAddrBase             Attr = 0x73
	AttrRnglistsBase         Attr = 0x74
	AttrDwoName              Attr = 0x76
	AttrReference            Attr = 0x77
	AttrRvalueReference      Attr = 0x78
	AttrMacros               Attr = 0x79
	AttrCallAllCalls         Attr = 0x7a
	AttrCallAllSourceCalls   Attr = 0x7b
	AttrCallAllTailCalls     Attr = 0x7c
	AttrCallReturnPC         Attr = 0x7d
	AttrCallValue            Attr = 0x7e
	AttrCallOrigin           Attr = 0x7f
	AttrCallParameter        Attr = 0x80
	AttrCallPC               Attr = 0x81
	AttrCallTailCall         Attr = 0x82
	AttrCallTarget           Attr = 0x83
	AttrCallTargetClobbered  Attr = 0x84
	AttrCallDataLocation     Attr = 0x85
	AttrCallDataValue        Attr = 0x86
	AttrNoreturn             Attr = 0x87
	AttrAlignment            Attr = 0x88
	AttrExportSymbols        Attr = 0x89
	AttrDeleted              Attr = 0x8a
	AttrDefaulted            Attr = 0x8b
	AttrLoclistsBase         Attr = 0x8c
	AttrMIPSLinkageName      Attr = 0x2007
)

var attrNames = map[Attr]string{
	AttrSibling:              "DW_AT_sibling",
	AttrLocation:             "DW_AT_location",
	AttrName:                 "DW_AT_name",
	AttrOrdering:             "DW_AT_ordering",
	AttrByteSize:             "DW_AT_byte_size",
	AttrBitOffset:            "DW_AT_bit_offset",
	AttrBitSize:              "DW_AT_bit_size",
	AttrStmtList:             "DW_AT_stmt_list",
	AttrLowPC:                "DW_AT_low_pc",
	AttrHighPC:               "DW_AT_high_pc",
	AttrLanguage:             "DW_AT_language",
	AttrDiscr:                "DW_AT_discr",
	AttrDiscrValue:           "DW_AT_discr_value",
	AttrVisibility:           "DW_AT_visibility",
	AttrImport:               "DW_AT_import",
	AttrStringLength:         "DW_AT_string_length",
	AttrCommonReference:      "DW_AT_common_reference",
	AttrCompDir:              "DW_AT_comp_dir",
	AttrConstValue:           "DW_AT_const_value",
	AttrContainingType:       "DW_AT_containing_type",
	AttrDefaultValue:         "DW_AT_default_value",
	AttrInline:               "DW_AT_inline",
	AttrIsOptional:           "DW_AT_is_optional",
	AttrLowerBound:           "DW_AT_lower_bound",
	AttrProducer:             "DW_AT_producer",
	AttrPrototyped:           "DW_AT_prototyped",
	AttrReturnAddr:           "DW_AT_return_addr",
	AttrStartScope:           "DW_AT_start_scope",
	AttrBitStride:            "DW_AT_bit_stride",
	AttrUpperBound:           "DW_AT_upper_bound",
	AttrAbstractOrigin:       "DW_AT_abstract_origin",
	AttrAccessibility:        "DW_AT_accessibility",
	AttrAddressClass:         "DW_AT_address_class",
	AttrArtificial:           "DW_AT_artificial",
	AttrBaseTypes:            "DW_AT_base_types",
	AttrCallingConvention:    "DW_AT_calling_convention",
	AttrCount:                "DW_AT_count",
	AttrDataMemberLocation:   "DW_AT_data_member_location",
	AttrDeclColumn:           "DW_AT_decl_column",
	AttrDeclFile:             "DW_AT_decl_file",
	AttrDeclLine:             "DW_AT_decl_line",
	AttrDeclaration:          "DW_AT_declaration",
	AttrDiscrList:            "DW_AT_discr_list",
	AttrEncoding:             "DW_AT_encoding",
	AttrExternal:             "DW_AT_external",
	AttrFrameBase:            "DW_AT_frame_base",
	AttrFriend:               "DW_AT_friend",
	AttrIdentifierCase:       "DW_AT_identifier_case",
	AttrMacroInfo:            "DW_AT_macro_info",
	AttrNamelistItem:         "DW_AT_namelist_item",
	AttrPriority:             "DW_AT_priority",
	AttrSegment:              "DW_AT_segment",
	AttrSpecification:        "DW_AT_specification",
	AttrStaticLink:           "DW_AT_static_link",
	AttrType:                 "DW_AT_type",
	AttrUseLocation:          "DW_AT_use_location",
	AttrVariableParameter:    "DW_AT_variable_parameter",
	AttrVirtuality:           "DW_AT_virtuality",
	AttrVtableElemLocation:   "DW_AT_vtable_elem_location",
	AttrAllocated:            "DW_AT_allocated",
	AttrAssociated:           "DW_AT_associated",
	AttrDataLocation:         "DW_AT_data_location",
	AttrByteStride:           "DW_AT_byte_stride",
	AttrEntryPC:              "DW_AT_entry_pc",
	AttrUseUTF8:              "DW_AT_use_UTF8",
	AttrExtension:            "DW_AT_extension",
	AttrRanges:               "DW_AT_ranges",
	AttrTrampoline:           "DW_AT_trampoline",
	AttrCallColumn:           "DW_AT_call_column",
	AttrCallFile:             "DW_AT_call_file",
	AttrCallLine:             "DW_AT_call_line",
	AttrDescription:          "DW_AT_description",
	AttrBinaryScale:          "DW_AT_binary_scale",
	AttrDecimalScale:         "DW_AT_decimal_scale",
	AttrSmall:                "DW_AT_small",
	AttrDecimalSign:          "DW_AT_decimal_sign",
	AttrDigitCount:           "DW_AT_digit_count",
	AttrPictureString:        "DW_AT_picture_string",
	AttrMutable:              "DW_AT_mutable",
	AttrThreadsScaled:        "DW_AT_threads_scaled",
	AttrExplicit:             "DW_AT_explicit",
	AttrObjectPointer:        "DW_AT_object_pointer",
	AttrEndianity:            "DW_AT_endianity",
	AttrElemental:            "DW_AT_elemental",
	AttrPure:                 "DW_AT_pure",
	AttrRecursive:            "DW_AT_recursive",
	AttrSignature:            "DW_AT_signature",
	AttrMainSubprogram:       "DW_AT_main_subprogram",
	AttrDataBitOffset:        "DW_AT_data_bit_offset",
	AttrConstExpr:            "DW_AT_const_expr",
	AttrEnumClass:            "DW_AT_enum_class",
	AttrLinkageName:          "DW_AT_linkage_name",
	AttrStringLengthBitSize:  "DW_AT_string_length_bit_size",
	AttrStringLengthByteSize: "DW_AT_string_length_byte_size",
	AttrRank:                 "DW_AT_rank",
	AttrStrOffsetsBase:       "DW_AT_str_offsets_base",
	AttrAddrBase:             "DW_AT_addr_base",
	AttrRnglistsBase:         "DW_AT_rnglists_base",
	AttrDwoName:              "DW_AT_dwo_name",
	AttrReference:            "DW_AT_reference",
	AttrRvalueReference:      "DW_AT_rvalue_reference",
	AttrMacros:               "DW_AT_macros",
	AttrCallAllCalls:         "DW_AT_call_all_calls",
	AttrCallAllSourceCalls:   "DW_AT_call_all_source_calls",
	AttrCallAllTailCalls:     "DW_AT_call_all_tail_calls",
	AttrCallReturnPC:         "DW_AT_call_return_pc",
	AttrCallValue:            "DW_AT_call_value",
	AttrCallOrigin:           "DW_AT_call_origin",
	AttrCallParameter:        "DW_AT_call_parameter",
	AttrCallPC:               "DW_AT_call_pc",
	AttrCallTailCall:         "DW_AT_call_tail_call",
	AttrCallTarget:           "DW_AT_call_target",
	AttrCallTargetClobbered:  "DW_AT_call_target_clobbered",
	AttrCallDataLocation:     "DW_AT_call_data_location",
	AttrCallDataValue:        "DW_AT_call_data_value",
	AttrNoreturn:             "DW_AT_noreturn",
	AttrAlignment:            "DW_AT_alignment",
	AttrExportSymbols:        "DW_AT_export_symbols",
	AttrDeleted:              "DW_AT_deleted",
	AttrDefaulted:            "DW_AT_defaulted",
	AttrLoclistsBase:         "DW_AT_loclists_base",
	AttrMIPSLinkageName:      "DW_AT_MIPS_linkage_name",
}

const (
	FormAddr          Form = 0x01
	FormBlock2        Form = 0x03
	FormBlock4        Form = 0x04
	FormData2         Form = 0x05
	FormData4         Form = 0x06
	FormData8         Form = 0x07
	FormString        Form = 0x08
	FormBlock         Form = 0x09
	FormBlock1        Form = 0x0a
	FormData1         Form = 0x0b
	FormFlag          Form = 0x0c
	FormSdata         Form = 0x0d
	FormStrp          Form = 0x0e
	FormUdata         Form = 0x0f
	FormRefAddr       Form = 0x10
	FormRef1          Form = 0x11
	FormRef2          Form = 0x12
	FormRef4          Form = 0x13
	FormRef8          Form = 0x14
	FormRefUdata      Form = 0x15
	FormIndirect      Form = 0x16
	FormSecOffset     Form = 0x17
	FormExprloc       Form = 0x18
	FormFlagPresent   Form = 0x19
	FormStrx          Form = 0x1a
	FormAddrx         Form = 0x1b
	FormRefSup4       Form = 0x1c
	FormStrpSup       Form = 0x1d
	FormData16        Form = 0x1e
	FormLineStrp      Form = 0x1f
	FormRefSig8       Form = 0x20
	FormImplicitConst Form = 0x21
	FormLoclistx      Form = 0x22
	FormRnglistx      Form = 0x23
	FormRefSup8       Form = 0x24
	FormStrx1         Form = 0x25
	FormStrx2         Form = 0x26
	FormStrx3         Form = 0x27
	FormStrx4         Form = 0x28
	FormAddrx1        Form = 0x29
	FormAddrx2        Form = 0x2a
	FormAddrx3        Form = 0x2b
	FormAddrx4        Form = 0x2c
)

var formNames = map[Form]string{
	FormAddr:          "DW_FORM_addr",
	FormBlock2:        "DW_FORM_block2",
	FormBlock4:        "DW_FORM_block4",
	FormData2:         "DW_FORM_data2",
	FormData4:         "DW_FORM_data4",
	FormData8:         "DW_FORM_data8",
	FormString:        "DW_FORM_string",
	FormBlock:         "DW_FORM_block",
	FormBlock1:        "DW_FORM_block1",
	FormData1:         "DW_FORM_data1",
	FormFlag:          "DW_FORM_flag",
	FormSdata:         "DW_FORM_sdata",
	FormStrp:          "DW_FORM_strp",
	FormUdata:         "DW_FORM_udata",
	FormRefAddr:       "DW_FORM_ref_addr",
	FormRef1:          "DW_FORM_ref1",
	FormRef2:          "DW_FORM_ref2",
	FormRef4:          "DW_FORM_ref4",
	FormRef8:          "DW_FORM_ref8",
	FormRefUdata:      "DW_FORM_ref_udata",
	FormIndirect:      "DW_FORM_indirect",
	FormSecOffset:     "DW_FORM_sec_offset",
	FormExprloc:       "DW_FORM_exprloc",
	FormFlagPresent:   "DW_FORM_flag_present",
	FormStrx:          "DW_FORM_strx",
	FormAddrx:         "DW_FORM_addrx",
	FormRefSup4:       "DW_FORM_ref_sup4",
	FormStrpSup:       "DW_FORM_strp_sup",
	FormData16:        "DW_FORM_data16",
	FormLineStrp:      "DW_FORM_line_strp",
	FormRefSig8:       "DW_FORM_ref_sig8",
	FormImplicitConst: "DW_FORM_implicit_const",
	FormLoclistx:      "DW_FORM_loclistx",
	FormRnglistx:      "DW_FORM_rnglistx",
	FormRefSup8:       "DW_FORM_ref_sup8",
	FormStrx1:         "DW_FORM_strx1",
	FormStrx2:         "DW_FORM_strx2",
	FormStrx3:         "DW_FORM_strx3",
	FormStrx4:         "DW_FORM_strx4",
	FormAddrx1:        "DW_FORM_addrx1",
	FormAddrx2:        "DW_FORM_addrx2",
	FormAddrx3:        "DW_FORM_addrx3",
	FormAddrx4:        "DW_FORM_addrx4",
}

// Known reports whether t is in the tag table.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DW_TAG(0x%x)", uint64(t))
}

// Known reports whether a is in the attribute table. Vendor extensions that
// are not listed still decode; only their name is missing.
func (a Attr) Known() bool {
	_, ok := attrNames[a]
	return ok
}

func (a Attr) String() string {
	if name, ok := attrNames[a]; ok {
		return name
	}
	return fmt.Sprintf("DW_AT(0x%x)", uint64(a))
}

// Known reports whether f is in the form table.
func (f Form) Known() bool {
	_, ok := formNames[f]
	return ok
}

func (f Form) String() string {
	if name, ok := formNames[f]; ok {
		return name
	}
	return fmt.Sprintf("DW_FORM(0x%x)", uint64(f))
}

// IsUnitRef reports whether values of f are offsets relative to the start of
// the containing unit.
func (f Form) IsUnitRef() bool {
	switch f {
	case FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata:
		return true
	}
	return false
}

// IsString reports whether values of f denote a string, either inline or by
// reference into a string section.
func (f Form) IsString() bool {
	switch f {
	case FormString, FormStrp, FormLineStrp, FormStrpSup,
		FormStrx, FormStrx1, FormStrx2, FormStrx3, FormStrx4:
		return true
	}
	return false
}
